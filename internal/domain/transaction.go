package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a unified transaction.
type TransactionType string

const (
	TypeEthTransfer         TransactionType = "ETH_TRANSFER"
	TypeErc20Transfer       TransactionType = "ERC20_TRANSFER"
	TypeErc721Transfer      TransactionType = "ERC721_TRANSFER"
	TypeErc1155Transfer     TransactionType = "ERC1155_TRANSFER"
	TypeInternalTransfer    TransactionType = "INTERNAL_TRANSFER"
	TypeContractInteraction TransactionType = "CONTRACT_INTERACTION"
	TypeFailedTransaction   TransactionType = "FAILED_TRANSACTION"
)

// TransactionStatus is the execution outcome. The string values match the
// explorer's txreceipt_status encoding.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "1"
	StatusFailed  TransactionStatus = "0"
	StatusPending TransactionStatus = "pending"
	StatusUnknown TransactionStatus = "unknown"
)

// ParseStatus maps a receipt status string to a TransactionStatus.
func ParseStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1":
		return StatusSuccess
	case "0":
		return StatusFailed
	case "pending":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// Metadata keys written by the categorizer and converters.
const (
	MetaContractName  = "contract_name"
	MetaContractType  = "contract_type"
	MetaInternal      = "internal"
	MetaErrorCode     = "error_code"
	MetaTokenTransfer = "token_transfer"
)

const dateLayout = "2006-01-02 15:04:05"

// UnifiedTransaction is the canonical record every source is normalized into.
type UnifiedTransaction struct {
	Hash             string            `json:"hash"`
	BlockNumber      uint64            `json:"block_number"`
	Timestamp        time.Time         `json:"timestamp"`
	From             string            `json:"from"`
	To               string            `json:"to"`
	Value            decimal.Decimal   `json:"value"`
	GasUsed          uint64            `json:"gas_used"`
	GasPrice         decimal.Decimal   `json:"gas_price"`
	TransactionFee   decimal.Decimal   `json:"transaction_fee"`
	Status           TransactionStatus `json:"status"`
	Type             TransactionType   `json:"transaction_type"`
	Nonce            uint64            `json:"nonce"`
	TransactionIndex uint64            `json:"transaction_index"`

	ContractAddress string `json:"contract_address,omitempty"`
	TokenSymbol     string `json:"token_symbol,omitempty"`
	TokenName       string `json:"token_name,omitempty"`
	TokenDecimals   *int   `json:"token_decimals,omitempty"`
	TokenID         string `json:"token_id,omitempty"`

	InputData string         `json:"input_data,omitempty"`
	MethodID  string         `json:"method_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTransaction normalizes tx: addresses are lowercased and Metadata is
// always non-nil. Every producer of UnifiedTransaction goes through here.
func NewTransaction(tx UnifiedTransaction) UnifiedTransaction {
	tx.From = NormalizeAddress(tx.From)
	tx.To = NormalizeAddress(tx.To)
	tx.ContractAddress = NormalizeAddress(tx.ContractAddress)
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]any)
	}
	if tx.Status == "" {
		tx.Status = StatusUnknown
	}
	return tx
}

// Clone returns a copy that shares no mutable state with tx.
func (tx UnifiedTransaction) Clone() UnifiedTransaction {
	out := tx
	if tx.Metadata != nil {
		out.Metadata = make(map[string]any, len(tx.Metadata))
		for key, value := range tx.Metadata {
			out.Metadata[key] = value
		}
	}
	if tx.TokenDecimals != nil {
		decimals := *tx.TokenDecimals
		out.TokenDecimals = &decimals
	}
	return out
}

// DateString formats the timestamp in UTC.
func (tx UnifiedTransaction) DateString() string {
	return tx.Timestamp.UTC().Format(dateLayout)
}

// ValueString renders ether amounts with six decimals and token amounts as is.
func (tx UnifiedTransaction) ValueString() string {
	if tx.Type == TypeEthTransfer {
		return tx.Value.StringFixed(6)
	}
	return tx.Value.String()
}

// FeeInEth converts the wei denominated fee to ether.
func (tx UnifiedTransaction) FeeInEth() decimal.Decimal {
	return WeiToEther(tx.TransactionFee)
}

// WeiToEther scales a wei amount to ether.
func WeiToEther(wei decimal.Decimal) decimal.Decimal {
	return wei.Shift(-18)
}
