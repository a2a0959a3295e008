package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"ethtracker/internal/domain"

	"github.com/redis/go-redis/v9"
)

type mockSource struct {
	normalCalls int
	err         error
}

func (m *mockSource) FetchNormal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.UnifiedTransaction, error) {
	m.normalCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []domain.UnifiedTransaction{domain.NewTransaction(domain.UnifiedTransaction{Hash: "0x1"})}, nil
}

func (m *mockSource) FetchInternal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.InternalTransactionRecord, error) {
	return []domain.InternalTransactionRecord{{Hash: "0x2"}}, nil
}

func (m *mockSource) FetchTokenTransfers(ctx context.Context, address, contractAddress string, startBlock, endBlock uint64, page, pageSize int) ([]domain.TokenTransferRecord, error) {
	return []domain.TokenTransferRecord{{TransactionHash: "0x3"}}, nil
}

func TestPageKey(t *testing.T) {
	got := pageKey("tokentx", "0xABC", "0xDEF", 1, 2, 3, 100)
	if got != "ethtracker:v1:tokentx:0xabc:1:2:3:100:0xdef" {
		t.Errorf("unexpected key %s", got)
	}
	if got := pageKey("txlist", "0xabc", "", 0, 99999999, 1, 1000); got != "ethtracker:v1:txlist:0xabc:0:99999999:1:1000" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestNewPageCache_DisabledPassesThrough(t *testing.T) {
	source := &mockSource{}
	cache, err := NewPageCache(source, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.Enabled() {
		t.Error("cache without address must be disabled")
	}
	for i := 0; i < 2; i++ {
		if _, err := cache.FetchNormal(context.Background(), "0xabc", 0, 1, 1, 10); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if source.normalCalls != 2 {
		t.Errorf("expected every call to reach the source, got %d", source.normalCalls)
	}
	internal, _ := cache.FetchInternal(context.Background(), "0xabc", 0, 1, 1, 10)
	tokens, _ := cache.FetchTokenTransfers(context.Background(), "0xabc", "", 0, 1, 1, 10)
	if len(internal) != 1 || len(tokens) != 1 {
		t.Errorf("unexpected passthrough results %v %v", internal, tokens)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestNewPageCache_RequiresSource(t *testing.T) {
	if _, err := NewPageCache(nil, Config{}); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestReadThrough_FallsBackWhenRedisIsDown(t *testing.T) {
	source := &mockSource{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cache := &PageCache{source: source, cache: client, ttl: time.Minute}

	txs, err := cache.FetchNormal(context.Background(), "0xabc", 0, 1, 1, 10)
	if err != nil {
		t.Fatalf("redis failure must not surface: %v", err)
	}
	if len(txs) != 1 || source.normalCalls != 1 {
		t.Errorf("expected source result, got %d (calls %d)", len(txs), source.normalCalls)
	}

	source.err = errors.New("explorer down")
	if _, err := cache.FetchNormal(context.Background(), "0xabc", 0, 1, 2, 10); err == nil {
		t.Error("expected source error to propagate")
	}
}
