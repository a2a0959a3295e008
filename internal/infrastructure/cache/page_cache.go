package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ethtracker/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "ethtracker:v1"
	defaultCacheTTL = 10 * time.Minute
)

// Source is the explorer surface the cache sits in front of.
type Source interface {
	FetchNormal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.UnifiedTransaction, error)
	FetchInternal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.InternalTransactionRecord, error)
	FetchTokenTransfers(ctx context.Context, address, contractAddress string, startBlock, endBlock uint64, page, pageSize int) ([]domain.TokenTransferRecord, error)
}

type Config struct {
	Addr string
	TTL  time.Duration
}

// PageCache is a read-through redis cache of explorer pages. Without a redis
// address every call goes straight to the source.
type PageCache struct {
	source Source
	cache  *redis.Client
	ttl    time.Duration
}

func NewPageCache(source Source, cfg Config) (*PageCache, error) {
	if source == nil {
		return nil, errors.New("cache source is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &PageCache{source: source}, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return &PageCache{source: source, cache: client, ttl: cfg.TTL}, nil
}

func (c *PageCache) Enabled() bool {
	return c.cache != nil
}

func (c *PageCache) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

func (c *PageCache) FetchNormal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.UnifiedTransaction, error) {
	key := pageKey("txlist", address, "", startBlock, endBlock, page, pageSize)
	return readThrough(ctx, c, key, func() ([]domain.UnifiedTransaction, error) {
		return c.source.FetchNormal(ctx, address, startBlock, endBlock, page, pageSize)
	})
}

func (c *PageCache) FetchInternal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.InternalTransactionRecord, error) {
	key := pageKey("txlistinternal", address, "", startBlock, endBlock, page, pageSize)
	return readThrough(ctx, c, key, func() ([]domain.InternalTransactionRecord, error) {
		return c.source.FetchInternal(ctx, address, startBlock, endBlock, page, pageSize)
	})
}

func (c *PageCache) FetchTokenTransfers(ctx context.Context, address, contractAddress string, startBlock, endBlock uint64, page, pageSize int) ([]domain.TokenTransferRecord, error) {
	key := pageKey("tokentx", address, contractAddress, startBlock, endBlock, page, pageSize)
	return readThrough(ctx, c, key, func() ([]domain.TokenTransferRecord, error) {
		return c.source.FetchTokenTransfers(ctx, address, contractAddress, startBlock, endBlock, page, pageSize)
	})
}

// readThrough serves key from redis when present. Only successful fetches
// are stored; redis failures fall back to the source.
func readThrough[T any](ctx context.Context, c *PageCache, key string, fetch func() ([]T, error)) ([]T, error) {
	if c.cache == nil {
		return fetch()
	}
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		var items []T
		if err := json.Unmarshal([]byte(cached), &items); err == nil {
			slog.Debug("page cache hit", "key", key, "count", len(items))
			return items, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("page cache read failed", "key", key, "err", err)
	}

	items, err := fetch()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		slog.Warn("page cache write failed", "key", key, "err", err)
	}
	return items, nil
}

func pageKey(kind, address, contract string, startBlock, endBlock uint64, page, pageSize int) string {
	key := fmt.Sprintf("%s:%s:%s:%d:%d:%d:%d", keyPrefix, kind, strings.ToLower(address), startBlock, endBlock, page, pageSize)
	if contract != "" {
		key += ":" + strings.ToLower(contract)
	}
	return key
}
