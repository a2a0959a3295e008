package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ethtracker/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultGroupID = "ethtracker-consumer"

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler receives each decoded transaction message. A returned error leaves
// the message uncommitted.
type Handler func(ctx context.Context, msg streaming.TransactionMessage) error

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads the transaction stream written by Publisher.
type Consumer struct {
	reader     messageReader
	retryPause time.Duration
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = DefaultTopic
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, retryPause: 100 * time.Millisecond}, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run consumes until ctx is cancelled. Undecodable messages are committed and
// skipped.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	if handle == nil {
		return errors.New("consumer handler is required")
	}
	tracer := otel.Tracer("ethtracker/kafka")

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("kafka fetch error", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryPause):
			}
			continue
		}

		decoded, err := streaming.Decode(message.Value)
		if err != nil {
			slog.Warn("message decode error", "run_id", headerValue(message.Headers, headerRunID), "partition", message.Partition, "offset", message.Offset, "err", err)
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				slog.Error("kafka commit error", "err", err)
			}
			continue
		}

		messageCtx := traceContext(ctx, message.Headers)
		messageCtx, span := tracer.Start(messageCtx, "consumer.handle_transaction", trace.WithSpanKind(trace.SpanKindConsumer))
		span.SetAttributes(
			attribute.String("run.id", decoded.RunID),
			attribute.String("address", decoded.Address),
			attribute.String("tx.hash", decoded.Hash),
			attribute.Int64("kafka.offset", message.Offset),
		)

		if err := handle(messageCtx, decoded); err != nil {
			slog.Error("message handler error", "run_id", decoded.RunID, "hash", decoded.Hash, "err", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			continue
		}
		if err := c.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			slog.Error("kafka commit error", "err", err)
		}
		span.End()
	}
}
