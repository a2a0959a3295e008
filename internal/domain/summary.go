package domain

import "github.com/shopspring/decimal"

// Summary aggregates a processed transaction list. Empty reports a run with
// nothing to summarize.
type Summary struct {
	Address             string                  `json:"address"`
	TotalTransactions   int                     `json:"total_transactions"`
	Empty               bool                    `json:"empty,omitempty"`
	Earliest            string                  `json:"earliest,omitempty"`
	Latest              string                  `json:"latest,omitempty"`
	TransactionTypes    map[TransactionType]int `json:"transaction_types"`
	TotalGasFeesEth     decimal.Decimal         `json:"total_gas_fees_eth"`
	UniqueTokens        []string                `json:"unique_tokens"`
	UniqueContracts     []string                `json:"unique_contracts"`
	UniqueTokenCount    int                     `json:"unique_token_count"`
	UniqueContractCount int                     `json:"unique_contract_count"`
}
