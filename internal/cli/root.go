package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ethtracker/internal/application"
	"ethtracker/internal/domain"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

type trackOptions struct {
	provider        string
	startBlock      uint64
	endBlock        uint64
	maxTransactions int
	noExport        bool
	batchFile       string
}

var opts trackOptions

var rootCmd = &cobra.Command{
	Use:           "tracker [address]",
	Short:         "Ethereum address transaction tracker",
	Long:          `Tracker fetches the normal, internal and token transactions of an Ethereum address, categorizes them and writes a CSV report.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTrack,
}

// SetBuildInfo records the values injected at link time.
func SetBuildInfo(v, c, t string) {
	version, commit, buildTime = v, c, t
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("tracker failed", "err", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.provider, "provider", "", "explorer provider (default from DEFAULT_PROVIDER)")

	rootCmd.Flags().Uint64Var(&opts.startBlock, "start-block", 0, "first block to scan (default from DEFAULT_START_BLOCK)")
	rootCmd.Flags().Uint64Var(&opts.endBlock, "end-block", 0, "last block to scan (default from DEFAULT_END_BLOCK)")
	rootCmd.Flags().IntVar(&opts.maxTransactions, "max-transactions", 0, "maximum transactions per address (default from MAX_TRANSACTIONS)")
	rootCmd.Flags().BoolVar(&opts.noExport, "no-export", false, "skip writing the CSV file")
	rootCmd.Flags().StringVar(&opts.batchFile, "batch-file", "", "file with one address per line")
}

func runTrack(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && opts.batchFile == "" {
		return fmt.Errorf("%w: an address or --batch-file is required", domain.ErrValidation)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.provider)
	if err != nil {
		return err
	}
	defer a.Close()

	req := application.AddressRequest{
		StartBlock:      a.cfg.DefaultStartBlock,
		EndBlock:        a.cfg.DefaultEndBlock,
		MaxTransactions: opts.maxTransactions,
		Export:          !opts.noExport,
	}
	if cmd.Flags().Changed("start-block") {
		req.StartBlock = opts.startBlock
	}
	if cmd.Flags().Changed("end-block") {
		req.EndBlock = opts.endBlock
	}

	out := cmd.OutOrStdout()
	if opts.batchFile != "" {
		addresses, err := readAddresses(opts.batchFile)
		if err != nil {
			return err
		}
		results := a.tracker.ProcessBatch(ctx, addresses, req)
		printBatch(out, results)
		if failed := countFailures(results); failed > 0 {
			return fmt.Errorf("%d of %d addresses failed", failed, len(results))
		}
		return nil
	}

	req.Address = args[0]
	result, err := a.tracker.ProcessAddress(ctx, req)
	if err != nil {
		return err
	}
	printResult(out, result)
	return nil
}

func countFailures(results []application.BatchResult) int {
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	return failed
}
