package explorer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ethtracker/internal/domain"

	"github.com/shopspring/decimal"
)

// MetaSource records which explorer action produced a normal transaction.
const MetaSource = "source"

// row is one element of an explorer "result" array. Etherscan encodes every
// value as a string; numbers are tolerated for compatible explorers.
// maxTokenDecimals bounds tokenDecimal; ERC-20 stores decimals in a uint8.
const maxTokenDecimals = 255

type row map[string]any

func (r row) text(key string) (string, bool) {
	value, ok := r[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

func (r row) optional(key string) string {
	value, _ := r.text(key)
	return value
}

func (r row) required(key string) (string, error) {
	value, ok := r.text(key)
	if !ok {
		return "", fmt.Errorf("%w: missing %s", domain.ErrParse, key)
	}
	return value, nil
}

func (r row) requiredNonEmpty(key string) (string, error) {
	value, err := r.required(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: empty %s", domain.ErrParse, key)
	}
	return value, nil
}

func (r row) uint(key string) (uint64, error) {
	raw, err := r.required(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrParse, key, raw)
	}
	return value, nil
}

func (r row) uintOr(key string, fallback uint64) (uint64, error) {
	raw, ok := r.text(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrParse, key, raw)
	}
	return value, nil
}

func (r row) decimal(key string) (decimal.Decimal, error) {
	raw, err := r.required(key)
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(key, raw)
}

func (r row) timestamp(key string) (time.Time, error) {
	seconds, err := r.uint(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(seconds), 0).UTC(), nil
}

func parseDecimal(key, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s %q", domain.ErrParse, key, raw)
	}
	return value, nil
}

func parseNormalTransaction(r row) (domain.UnifiedTransaction, error) {
	hash, err := r.requiredNonEmpty("hash")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	blockNumber, err := r.uint("blockNumber")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	timestamp, err := r.timestamp("timeStamp")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	from, err := r.required("from")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	to, err := r.required("to")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	weiValue, err := parseDecimal("value", r.optional("value"))
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	gasUsed, err := r.uint("gasUsed")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	gasPrice, err := r.decimal("gasPrice")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	nonce, err := r.uint("nonce")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}
	txIndex, err := r.uint("transactionIndex")
	if err != nil {
		return domain.UnifiedTransaction{}, err
	}

	status := domain.ParseStatus(r.optional("txreceipt_status"))
	if status == domain.StatusUnknown && r.optional("isError") == "1" {
		status = domain.StatusFailed
	}

	tx := domain.UnifiedTransaction{
		Hash:             hash,
		BlockNumber:      blockNumber,
		Timestamp:        timestamp,
		From:             from,
		To:               to,
		Value:            domain.WeiToEther(weiValue),
		GasUsed:          gasUsed,
		GasPrice:         gasPrice,
		TransactionFee:   decimal.NewFromUint64(gasUsed).Mul(gasPrice),
		Status:           status,
		Type:             domain.TypeEthTransfer,
		Nonce:            nonce,
		TransactionIndex: txIndex,
		InputData:        r.optional("input"),
		Metadata:         map[string]any{MetaSource: "txlist"},
	}
	if to == "" {
		tx.ContractAddress = r.optional("contractAddress")
	}
	return domain.NewTransaction(tx), nil
}

func parseInternalTransaction(r row) (domain.InternalTransactionRecord, error) {
	hash, err := r.requiredNonEmpty("hash")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	from, err := r.required("from")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	to, err := r.required("to")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	weiValue, err := r.decimal("value")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	gasUsed, err := r.uintOr("gas", 0)
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	blockNumber, err := r.uint("blockNumber")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}
	timestamp, err := r.timestamp("timeStamp")
	if err != nil {
		return domain.InternalTransactionRecord{}, err
	}

	kind := r.optional("type")
	if kind == "" {
		kind = "call"
	}
	var errorCode *string
	if code := r.optional("errCode"); code != "" {
		errorCode = &code
	}

	return domain.InternalTransactionRecord{
		Hash:        hash,
		From:        domain.NormalizeAddress(from),
		To:          domain.NormalizeAddress(to),
		Value:       domain.WeiToEther(weiValue),
		GasUsed:     gasUsed,
		BlockNumber: blockNumber,
		Timestamp:   timestamp,
		Kind:        kind,
		IsError:     r.optional("isError") == "1",
		ErrorCode:   errorCode,
	}, nil
}

func parseTokenTransfer(r row) (domain.TokenTransferRecord, error) {
	decimalsRaw, err := r.uintOr("tokenDecimal", 0)
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	if decimalsRaw > maxTokenDecimals {
		return domain.TokenTransferRecord{}, fmt.Errorf("%w: tokenDecimal %d exceeds %d", domain.ErrParse, decimalsRaw, maxTokenDecimals)
	}
	decimals := int(decimalsRaw)

	value, err := r.decimal("value")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	if decimals > 0 {
		value = value.Shift(int32(-decimals))
	}

	contract, err := r.required("contractAddress")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	from, err := r.required("from")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	to, err := r.required("to")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	hash, err := r.requiredNonEmpty("hash")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	blockNumber, err := r.uint("blockNumber")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}
	timestamp, err := r.timestamp("timeStamp")
	if err != nil {
		return domain.TokenTransferRecord{}, err
	}

	return domain.TokenTransferRecord{
		ContractAddress: domain.NormalizeAddress(contract),
		From:            domain.NormalizeAddress(from),
		To:              domain.NormalizeAddress(to),
		Value:           value,
		TokenName:       r.optional("tokenName"),
		TokenSymbol:     r.optional("tokenSymbol"),
		TokenDecimals:   &decimals,
		TokenID:         r.optional("tokenID"),
		TransactionHash: hash,
		BlockNumber:     blockNumber,
		Timestamp:       timestamp,
	}, nil
}
