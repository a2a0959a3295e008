package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"ethtracker/internal/application"
	"ethtracker/internal/domain"
)

func printResult(w io.Writer, result *application.AddressResult) {
	summary := result.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Address\t%s\n", result.Address)
	fmt.Fprintf(tw, "Run ID\t%s\n", result.RunID)
	fmt.Fprintf(tw, "Transactions\t%d\n", result.TransactionCount)
	if summary.Empty {
		fmt.Fprintf(tw, "Summary\tno transactions found\n")
		_ = tw.Flush()
		return
	}
	fmt.Fprintf(tw, "Date range\t%s to %s\n", summary.Earliest, summary.Latest)
	fmt.Fprintf(tw, "Total gas fees\t%s ETH\n", summary.TotalGasFeesEth.StringFixed(6))
	fmt.Fprintf(tw, "Unique tokens\t%d\n", summary.UniqueTokenCount)
	fmt.Fprintf(tw, "Unique contracts\t%d\n", summary.UniqueContractCount)
	if result.CSVFile != "" {
		fmt.Fprintf(tw, "CSV file\t%s\n", result.CSVFile)
	}
	_ = tw.Flush()

	if len(summary.TransactionTypes) == 0 {
		return
	}
	fmt.Fprintln(w, "Transaction types:")
	types := make([]domain.TransactionType, 0, len(summary.TransactionTypes))
	for kind := range summary.TransactionTypes {
		types = append(types, kind)
	}
	slices.Sort(types)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kind := range types {
		fmt.Fprintf(tw, "  %s\t%d\n", kind, summary.TransactionTypes[kind])
	}
	_ = tw.Flush()
}

func printBatch(w io.Writer, results []application.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tTRANSACTIONS\tCSV FILE\tERROR")
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t%v\n", result.Address, result.Err)
			continue
		}
		file := result.Result.CSVFile
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", result.Address, result.Result.TransactionCount, file)
	}
	_ = tw.Flush()
}

// readAddresses loads one address per line. Blank lines and lines starting
// with '#' are ignored.
func readAddresses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("%w: batch file %s has no addresses", domain.ErrValidation, path)
	}
	return addresses, nil
}
