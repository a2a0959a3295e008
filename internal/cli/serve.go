package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ethtracker/internal/interfaces/httpapi"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tracker over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.provider)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := httpapi.NewServer(a.tracker, a.metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		return err
	}

	slog.Info("http server listening", "addr", a.cfg.HTTPAddr, "version", version)
	if err := server.ListenAndServe(ctx, a.cfg.HTTPAddr); err != nil {
		return err
	}
	slog.Info("http server stopped")
	return nil
}
