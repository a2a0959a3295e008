package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ethtracker/internal/domain"
	"ethtracker/internal/infrastructure/kafka"
	"ethtracker/internal/streaming"

	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Print transactions from the published stream",
	Args:  cobra.NoArgs,
	RunE:  runConsume,
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(a.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("%w: KAFKA_BROKERS is required to consume", domain.ErrConfiguration)
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: a.cfg.KafkaBrokers,
		Topic:   a.cfg.KafkaTopic,
		GroupID: a.cfg.KafkaGroupID,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	slog.Info("consuming transaction stream", "topic", a.cfg.KafkaTopic, "group", a.cfg.KafkaGroupID)
	return consumer.Run(ctx, printMessage(cmd.OutOrStdout()))
}

func printMessage(w io.Writer) kafka.Handler {
	return func(ctx context.Context, msg streaming.TransactionMessage) error {
		symbol := msg.TokenSymbol
		if symbol == "" {
			symbol = "ETH"
		}
		_, err := fmt.Fprintf(w, "%s %s %s %d %s %s %s\n",
			msg.RunID, msg.Address, msg.Hash, msg.BlockNumber, msg.TransactionType, msg.Value, symbol)
		return err
	}
}
