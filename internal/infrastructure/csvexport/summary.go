package csvexport

import (
	"slices"

	"ethtracker/internal/domain"

	"github.com/shopspring/decimal"
)

const summaryDateLayout = "2006-01-02"

func (e *Exporter) Summarize(transactions []domain.UnifiedTransaction, address string) domain.Summary {
	return Summarize(transactions, address)
}

// Summarize computes aggregate statistics. Token and contract lists are
// sorted for stable output.
func Summarize(transactions []domain.UnifiedTransaction, address string) domain.Summary {
	summary := domain.Summary{
		Address:          address,
		TransactionTypes: make(map[domain.TransactionType]int),
		TotalGasFeesEth:  decimal.Zero,
		UniqueTokens:     []string{},
		UniqueContracts:  []string{},
	}
	if len(transactions) == 0 {
		summary.Empty = true
		return summary
	}

	earliest, latest := transactions[0].Timestamp, transactions[0].Timestamp
	tokens := make(map[string]struct{})
	contracts := make(map[string]struct{})
	for _, tx := range transactions {
		if tx.Timestamp.Before(earliest) {
			earliest = tx.Timestamp
		}
		if tx.Timestamp.After(latest) {
			latest = tx.Timestamp
		}
		summary.TransactionTypes[tx.Type]++
		summary.TotalGasFeesEth = summary.TotalGasFeesEth.Add(tx.FeeInEth())
		if tx.TokenSymbol != "" {
			tokens[tx.TokenSymbol] = struct{}{}
		}
		if tx.ContractAddress != "" {
			contracts[tx.ContractAddress] = struct{}{}
		}
	}

	summary.TotalTransactions = len(transactions)
	summary.Earliest = earliest.UTC().Format(summaryDateLayout)
	summary.Latest = latest.UTC().Format(summaryDateLayout)
	summary.UniqueTokens = sortedKeys(tokens)
	summary.UniqueContracts = sortedKeys(contracts)
	summary.UniqueTokenCount = len(summary.UniqueTokens)
	summary.UniqueContractCount = len(summary.UniqueContracts)
	return summary
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
