package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ethtracker/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultStartBlock      uint64 = 0
	DefaultEndBlock        uint64 = 99999999
	DefaultMaxTransactions        = 10000
	DefaultPageSize               = 1000
)

// TransactionSource is the explorer surface the processor reads from.
// *explorer.EtherscanClient and *cache.PageCache satisfy it.
type TransactionSource interface {
	FetchNormal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.UnifiedTransaction, error)
	FetchInternal(ctx context.Context, address string, startBlock, endBlock uint64, page, pageSize int) ([]domain.InternalTransactionRecord, error)
	FetchTokenTransfers(ctx context.Context, address, contractAddress string, startBlock, endBlock uint64, page, pageSize int) ([]domain.TokenTransferRecord, error)
}

type ProcessorObserver interface {
	OnBranchFetched(branch string, count int, err error)
	OnProcessed(address string, count int, duration time.Duration)
}

type ProcessorConfig struct {
	PageSize int
}

// Processor gathers the three record kinds of an address concurrently and
// folds them into one ordered, categorized list.
type Processor struct {
	source      TransactionSource
	categorizer *Categorizer
	observer    ProcessorObserver
	cfg         ProcessorConfig
	tracer      trace.Tracer
}

const (
	branchNormal   = "normal"
	branchInternal = "internal"
	branchToken    = "token"
)

func NewProcessor(source TransactionSource, categorizer *Categorizer, observer ProcessorObserver, cfg ProcessorConfig) (*Processor, error) {
	if source == nil || categorizer == nil {
		return nil, errors.New("processor dependencies must not be nil")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Processor{
		source:      source,
		categorizer: categorizer,
		observer:    observer,
		cfg:         cfg,
		tracer:      otel.Tracer("ethtracker/application"),
	}, nil
}

type branchResult struct {
	normal   []domain.UnifiedTransaction
	internal []domain.InternalTransactionRecord
	tokens   []domain.TokenTransferRecord
}

// ProcessWalletTransactions returns at most maxTransactions transactions for
// address, most recent first. A failing branch contributes what it fetched
// before the failure; the call itself only fails on invalid input or a
// cancelled context.
func (p *Processor) ProcessWalletTransactions(ctx context.Context, address string, startBlock, endBlock uint64, maxTransactions int) ([]domain.UnifiedTransaction, error) {
	if maxTransactions <= 0 {
		return nil, fmt.Errorf("%w: max transactions must be positive, got %d", domain.ErrValidation, maxTransactions)
	}
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "processor.ProcessWalletTransactions", trace.WithAttributes(
		attribute.String("address", address),
		attribute.Int64("start_block", int64(startBlock)),
		attribute.Int64("end_block", int64(endBlock)),
		attribute.Int("max_transactions", maxTransactions),
	))
	defer span.End()

	slog.Info("processing wallet transactions", "address", address, "start_block", startBlock, "end_block", endBlock, "max", maxTransactions)

	var (
		wg      sync.WaitGroup
		results branchResult
	)
	wg.Add(3)
	go p.runBranch(ctx, &wg, branchNormal, func(ctx context.Context) (int, error) {
		var err error
		results.normal, err = fetchPaginated(ctx, branchNormal, maxTransactions, p.cfg.PageSize, func(ctx context.Context, page, size int) ([]domain.UnifiedTransaction, error) {
			return p.source.FetchNormal(ctx, address, startBlock, endBlock, page, size)
		})
		return len(results.normal), err
	})
	go p.runBranch(ctx, &wg, branchInternal, func(ctx context.Context) (int, error) {
		var err error
		results.internal, err = fetchPaginated(ctx, branchInternal, maxTransactions, p.cfg.PageSize, func(ctx context.Context, page, size int) ([]domain.InternalTransactionRecord, error) {
			return p.source.FetchInternal(ctx, address, startBlock, endBlock, page, size)
		})
		return len(results.internal), err
	})
	go p.runBranch(ctx, &wg, branchToken, func(ctx context.Context) (int, error) {
		var err error
		results.tokens, err = fetchPaginated(ctx, branchToken, maxTransactions, p.cfg.PageSize, func(ctx context.Context, page, size int) ([]domain.TokenTransferRecord, error) {
			return p.source.FetchTokenTransfers(ctx, address, "", startBlock, endBlock, page, size)
		})
		return len(results.tokens), err
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.Info("fetched records",
		"address", address,
		"normal", len(results.normal),
		"internal", len(results.internal),
		"tokens", len(results.tokens),
	)

	merged := make([]domain.UnifiedTransaction, 0, len(results.normal)+len(results.internal)+len(results.tokens))
	merged = append(merged, results.normal...)
	for _, record := range results.internal {
		tx, err := p.categorizer.ConvertInternal(record)
		if err != nil {
			slog.Debug("drop internal transaction", "hash", record.Hash, "err", err)
			continue
		}
		merged = append(merged, tx)
	}
	for _, record := range results.tokens {
		tx, err := p.categorizer.ConvertToken(record)
		if err != nil {
			slog.Debug("drop token transfer", "hash", record.TransactionHash, "err", err)
			continue
		}
		merged = append(merged, tx)
	}
	slog.Info("merged transactions", "address", address, "count", len(merged))

	slices.SortStableFunc(merged, func(a, b domain.UnifiedTransaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(merged) > maxTransactions {
		merged = merged[:maxTransactions]
	}
	final := p.categorizer.CategorizeAll(merged)

	span.SetAttributes(attribute.Int("transactions", len(final)))
	slog.Info("processed wallet transactions", "address", address, "count", len(final), "duration", time.Since(started))
	if p.observer != nil {
		p.observer.OnProcessed(address, len(final), time.Since(started))
	}
	return final, nil
}

// runBranch executes one fetch branch. A panic is contained to the branch,
// which then contributes no records.
func (p *Processor) runBranch(ctx context.Context, wg *sync.WaitGroup, branch string, run func(context.Context) (int, error)) {
	defer wg.Done()
	ctx, span := p.tracer.Start(ctx, "processor.fetch."+branch)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("branch %s panicked: %v", branch, r)
			slog.Error("fetch branch failed", "branch", branch, "err", err)
			span.RecordError(err)
			p.notifyBranch(branch, 0, err)
		}
	}()

	count, err := run(ctx)
	span.SetAttributes(attribute.Int("records", count))
	if err != nil {
		span.RecordError(err)
	}
	p.notifyBranch(branch, count, err)
}

func (p *Processor) notifyBranch(branch string, count int, err error) {
	if p.observer != nil {
		p.observer.OnBranchFetched(branch, count, err)
	}
}
