package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"ethtracker/internal/domain"
	"ethtracker/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTopic = "ethtracker-transactions"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher streams processed transactions, one message per transaction,
// keyed by the tracked address.
type Publisher struct {
	writer messageWriter
	topic  string
}

type PublisherConfig struct {
	Brokers []string
	Topic   string
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Publisher{writer: writer, topic: cfg.Topic}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) PublishTransactions(ctx context.Context, runID, address string, transactions []domain.UnifiedTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	tracer := otel.Tracer("ethtracker/kafka")
	ctx, span := tracer.Start(ctx, "publisher.publish_transactions", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("address", address),
		attribute.Int("transactions", len(transactions)),
	)

	traceID := ""
	if spanCtx := span.SpanContext(); spanCtx.HasTraceID() {
		traceID = spanCtx.TraceID().String()
	}
	headers := messageHeaders(ctx, runID, address)

	messages := make([]kafka.Message, 0, len(transactions))
	for _, tx := range transactions {
		msg := streaming.FromTransaction(runID, address, tx)
		msg.TraceID = traceID
		payload, err := streaming.Encode(msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		messages = append(messages, kafka.Message{
			Topic:   p.topic,
			Key:     []byte(address),
			Value:   payload,
			Headers: headers,
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
