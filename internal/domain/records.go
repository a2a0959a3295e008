package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InternalTransactionRecord is a value transfer executed by the EVM as a side
// effect of contract execution.
type InternalTransactionRecord struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Value       decimal.Decimal `json:"value"`
	GasUsed     uint64          `json:"gas_used"`
	BlockNumber uint64          `json:"block_number"`
	Timestamp   time.Time       `json:"timestamp"`
	Kind        string          `json:"kind"`
	IsError     bool            `json:"is_error"`
	ErrorCode   *string         `json:"error_code,omitempty"`
}

// TokenTransferRecord is a decoded ERC-20/721 Transfer event. Value is already
// scaled by TokenDecimals. A non-empty TokenID marks an NFT transfer.
type TokenTransferRecord struct {
	ContractAddress string          `json:"contract_address"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Value           decimal.Decimal `json:"value"`
	TokenName       string          `json:"token_name,omitempty"`
	TokenSymbol     string          `json:"token_symbol,omitempty"`
	TokenDecimals   *int            `json:"token_decimals,omitempty"`
	TokenID         string          `json:"token_id,omitempty"`
	TransactionHash string          `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
	Timestamp       time.Time       `json:"timestamp"`
}
