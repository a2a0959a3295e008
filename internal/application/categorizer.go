package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ethtracker/internal/domain"

	"github.com/shopspring/decimal"
)

const selectorLength = len("0x") + 8

const (
	selectorTransfer     = "0xa9059cbb"
	selectorTransferFrom = "0x23b872dd"
	selectorApprove      = "0x095ea7b3"
)

// Categorizer classifies unified transactions and converts internal and token
// records into them.
type Categorizer struct {
	catalog *Catalog
	now     func() time.Time
}

func NewCategorizer(catalog *Catalog) *Categorizer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Categorizer{catalog: catalog, now: time.Now}
}

func (c *Categorizer) CategorizeAll(transactions []domain.UnifiedTransaction) []domain.UnifiedTransaction {
	out := make([]domain.UnifiedTransaction, len(transactions))
	for i, tx := range transactions {
		out[i] = c.CategorizeOne(tx)
	}
	return out
}

// CategorizeOne returns a classified copy of tx. The rules run in a fixed
// order: method selector, then failed status, then known-contract annotation.
// A failed status always wins over the selector classification.
func (c *Categorizer) CategorizeOne(tx domain.UnifiedTransaction) domain.UnifiedTransaction {
	out := tx.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]any)
	}

	if len(out.InputData) > len("0x") {
		selector := strings.ToLower(out.InputData[:min(selectorLength, len(out.InputData))])
		if _, known := c.catalog.Method(selector); known {
			out.MethodID = selector
			switch selector {
			case selectorTransfer, selectorTransferFrom:
				out.Type = domain.TypeErc20Transfer
			case selectorApprove:
				out.Type = domain.TypeContractInteraction
			}
		}
	}

	if out.Status == domain.StatusFailed {
		out.Type = domain.TypeFailedTransaction
	}

	if info, ok := c.catalog.Contract(out.To); ok {
		out.Metadata[domain.MetaContractName] = info.Name
		out.Metadata[domain.MetaContractType] = info.Type
	}
	return out
}

var errMissingHash = errors.New("missing transaction hash")

func (c *Categorizer) ConvertInternal(record domain.InternalTransactionRecord) (domain.UnifiedTransaction, error) {
	if strings.TrimSpace(record.Hash) == "" {
		return domain.UnifiedTransaction{}, fmt.Errorf("%w: internal transaction: %v", domain.ErrConversion, errMissingHash)
	}
	if record.Timestamp.IsZero() {
		return domain.UnifiedTransaction{}, fmt.Errorf("%w: internal transaction %s: missing timestamp", domain.ErrConversion, record.Hash)
	}

	status := domain.StatusSuccess
	if record.IsError {
		status = domain.StatusFailed
	}
	var errorCode any
	if record.ErrorCode != nil {
		errorCode = *record.ErrorCode
	}

	return domain.NewTransaction(domain.UnifiedTransaction{
		Hash:           record.Hash,
		BlockNumber:    record.BlockNumber,
		Timestamp:      record.Timestamp,
		From:           record.From,
		To:             record.To,
		Value:          record.Value,
		GasUsed:        record.GasUsed,
		GasPrice:       decimal.Zero,
		TransactionFee: decimal.Zero,
		Status:         status,
		Type:           domain.TypeInternalTransfer,
		Metadata: map[string]any{
			domain.MetaInternal:  true,
			domain.MetaErrorCode: errorCode,
		},
	}), nil
}

func (c *Categorizer) ConvertToken(record domain.TokenTransferRecord) (domain.UnifiedTransaction, error) {
	if strings.TrimSpace(record.TransactionHash) == "" {
		return domain.UnifiedTransaction{}, fmt.Errorf("%w: token transfer: %v", domain.ErrConversion, errMissingHash)
	}

	txType := domain.TypeErc20Transfer
	if record.TokenID != "" {
		txType = domain.TypeErc721Transfer
	}
	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = c.now().UTC()
	}
	var decimals *int
	if record.TokenDecimals != nil {
		d := *record.TokenDecimals
		decimals = &d
	}

	return domain.NewTransaction(domain.UnifiedTransaction{
		Hash:            record.TransactionHash,
		BlockNumber:     record.BlockNumber,
		Timestamp:       timestamp,
		From:            record.From,
		To:              record.To,
		Value:           record.Value,
		GasPrice:        decimal.Zero,
		TransactionFee:  decimal.Zero,
		Status:          domain.StatusSuccess,
		Type:            txType,
		ContractAddress: record.ContractAddress,
		TokenSymbol:     record.TokenSymbol,
		TokenName:       record.TokenName,
		TokenDecimals:   decimals,
		TokenID:         record.TokenID,
		Metadata:        map[string]any{domain.MetaTokenTransfer: true},
	}), nil
}
