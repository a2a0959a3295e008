package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"ethtracker/internal/domain"
	"ethtracker/internal/streaming"

	"github.com/segmentio/kafka-go"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublishTransactions(t *testing.T) {
	writer := &mockWriter{}
	publisher := &Publisher{writer: writer, topic: DefaultTopic}
	txs := []domain.UnifiedTransaction{
		domain.NewTransaction(domain.UnifiedTransaction{Hash: "0x1", Timestamp: time.Unix(10, 0), Type: domain.TypeEthTransfer, Status: domain.StatusSuccess}),
		domain.NewTransaction(domain.UnifiedTransaction{Hash: "0x2", Timestamp: time.Unix(5, 0), Type: domain.TypeErc20Transfer, Status: domain.StatusSuccess, TokenSymbol: "USDC"}),
	}

	if err := publisher.PublishTransactions(context.Background(), "run-1", "0xabc", txs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(writer.messages))
	}
	for i, message := range writer.messages {
		if message.Topic != DefaultTopic || string(message.Key) != "0xabc" {
			t.Errorf("unexpected routing %s/%s", message.Topic, message.Key)
		}
		decoded, err := streaming.Decode(message.Value)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.Hash != txs[i].Hash || decoded.RunID != "run-1" {
			t.Errorf("unexpected payload %+v", decoded)
		}
		if headerValue(message.Headers, headerRunID) != "run-1" || headerValue(message.Headers, headerAddress) != "0xabc" {
			t.Errorf("unexpected headers %+v", message.Headers)
		}
	}
	if writer.messages[1].Value == nil {
		t.Error("empty payload")
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Errorf("close not forwarded: %v", err)
	}
}

func TestPublishTransactions_EmptyAndErrors(t *testing.T) {
	writer := &mockWriter{err: errors.New("broker down")}
	publisher := &Publisher{writer: writer, topic: DefaultTopic}

	if err := publisher.PublishTransactions(context.Background(), "run-1", "0xabc", nil); err != nil {
		t.Errorf("empty publish should be a no-op: %v", err)
	}
	tx := domain.NewTransaction(domain.UnifiedTransaction{Hash: "0x1"})
	if err := publisher.PublishTransactions(context.Background(), "run-1", "0xabc", []domain.UnifiedTransaction{tx}); err == nil {
		t.Error("expected writer error")
	}
	if err := publisher.PublishTransactions(context.Background(), "", "0xabc", []domain.UnifiedTransaction{tx}); err == nil {
		t.Error("expected validation error for missing run id")
	}
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	if _, err := NewPublisher(PublisherConfig{}); err == nil {
		t.Error("expected error without brokers")
	}
	publisher, err := NewPublisher(PublisherConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if publisher.topic != DefaultTopic {
		t.Errorf("expected default topic, got %s", publisher.topic)
	}
	_ = publisher.Close()
}
