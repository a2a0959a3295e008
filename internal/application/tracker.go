package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ethtracker/internal/domain"

	"github.com/google/uuid"
)

type Exporter interface {
	Export(transactions []domain.UnifiedTransaction, address string, includeTimestamp bool) (string, error)
	Summarize(transactions []domain.UnifiedTransaction, address string) domain.Summary
}

type Publisher interface {
	PublishTransactions(ctx context.Context, runID, address string, transactions []domain.UnifiedTransaction) error
}

type TrackerConfig struct {
	MaxTransactions  int
	IncludeTimestamp bool
	BatchPause       time.Duration
}

// AddressRequest describes one address run. Zero MaxTransactions falls back to
// the tracker default; a zero EndBlock means the default end block.
type AddressRequest struct {
	Address         string
	StartBlock      uint64
	EndBlock        uint64
	MaxTransactions int
	Export          bool
}

type AddressResult struct {
	RunID            string                      `json:"run_id"`
	Address          string                      `json:"address"`
	TransactionCount int                         `json:"transaction_count"`
	ProcessedAt      time.Time                   `json:"processed_at"`
	CSVFile          string                      `json:"csv_file,omitempty"`
	Summary          domain.Summary              `json:"summary"`
	Transactions     []domain.UnifiedTransaction `json:"-"`
}

type BatchResult struct {
	Address string
	Result  *AddressResult
	Err     error
}

// Tracker runs the per-address workflow: validation, processing, summary,
// CSV export and the optional stream publish.
type Tracker struct {
	processor *Processor
	exporter  Exporter
	publisher Publisher
	cfg       TrackerConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewTracker(processor *Processor, exporter Exporter, publisher Publisher, cfg TrackerConfig) (*Tracker, error) {
	if processor == nil || exporter == nil {
		return nil, errors.New("tracker dependencies must not be nil")
	}
	if cfg.MaxTransactions <= 0 {
		cfg.MaxTransactions = DefaultMaxTransactions
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	return &Tracker{
		processor: processor,
		exporter:  exporter,
		publisher: publisher,
		cfg:       cfg,
		sleep:     sleepContext,
	}, nil
}

func (t *Tracker) ProcessAddress(ctx context.Context, req AddressRequest) (*AddressResult, error) {
	address, err := domain.ValidateAddress(req.Address)
	if err != nil {
		return nil, err
	}
	maxTransactions := req.MaxTransactions
	if maxTransactions <= 0 {
		maxTransactions = t.cfg.MaxTransactions
	}
	endBlock := req.EndBlock
	if endBlock == 0 {
		endBlock = DefaultEndBlock
	}
	if req.StartBlock > endBlock {
		return nil, fmt.Errorf("%w: start block %d is after end block %d", domain.ErrValidation, req.StartBlock, endBlock)
	}

	runID := uuid.NewString()
	slog.Info("processing address", "run_id", runID, "address", address, "start_block", req.StartBlock, "end_block", endBlock, "max", maxTransactions)

	transactions, err := t.processor.ProcessWalletTransactions(ctx, address, req.StartBlock, endBlock, maxTransactions)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", address, err)
	}

	result := &AddressResult{
		RunID:            runID,
		Address:          address,
		TransactionCount: len(transactions),
		ProcessedAt:      time.Now().UTC(),
		Summary:          t.exporter.Summarize(transactions, address),
		Transactions:     transactions,
	}

	if req.Export && len(transactions) > 0 {
		path, err := t.exporter.Export(transactions, address, t.cfg.IncludeTimestamp)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", address, err)
		}
		result.CSVFile = path
		slog.Info("exported transactions", "run_id", runID, "address", address, "file", path)
	}

	if t.publisher != nil && len(transactions) > 0 {
		if err := t.publisher.PublishTransactions(ctx, runID, address, transactions); err != nil {
			slog.Error("publish transactions failed", "run_id", runID, "address", address, "err", err)
		}
	}
	return result, nil
}

// ProcessBatch handles addresses one after another with a pause in between.
// A failing address is recorded and the batch continues.
func (t *Tracker) ProcessBatch(ctx context.Context, addresses []string, template AddressRequest) []BatchResult {
	results := make([]BatchResult, 0, len(addresses))
	for i, address := range addresses {
		if i > 0 && t.cfg.BatchPause > 0 {
			if err := t.sleep(ctx, t.cfg.BatchPause); err != nil {
				for _, rest := range addresses[i:] {
					results = append(results, BatchResult{Address: rest, Err: err})
				}
				return results
			}
		}

		slog.Info("processing batch address", "address", address, "position", i+1, "total", len(addresses))
		req := template
		req.Address = address
		result, err := t.ProcessAddress(ctx, req)
		if err != nil {
			slog.Error("batch address failed", "address", address, "err", err)
		}
		results = append(results, BatchResult{Address: address, Result: result, Err: err})
	}
	return results
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
