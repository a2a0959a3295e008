package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"ethtracker/internal/domain"
)

type mockExporter struct {
	exported int
	path     string
	err      error
}

func (m *mockExporter) Export(transactions []domain.UnifiedTransaction, address string, includeTimestamp bool) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.exported += len(transactions)
	return m.path, nil
}

func (m *mockExporter) Summarize(transactions []domain.UnifiedTransaction, address string) domain.Summary {
	return domain.Summary{Address: address, TotalTransactions: len(transactions), Empty: len(transactions) == 0}
}

type mockPublisher struct {
	runIDs    []string
	published int
	err       error
}

func (m *mockPublisher) PublishTransactions(ctx context.Context, runID, address string, transactions []domain.UnifiedTransaction) error {
	m.runIDs = append(m.runIDs, runID)
	m.published += len(transactions)
	return m.err
}

func oneNormalPage(page, size int) ([]domain.UnifiedTransaction, error) {
	if page > 1 {
		return nil, nil
	}
	return []domain.UnifiedTransaction{normalTx(1), normalTx(2)}, nil
}

func newTestTracker(t *testing.T, exporter Exporter, publisher Publisher, cfg TrackerConfig) *Tracker {
	t.Helper()
	processor := newTestProcessor(t, &mockSource{normal: oneNormalPage}, nil)
	tracker, err := NewTracker(processor, exporter, publisher, cfg)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker
}

func TestProcessAddress_ExportsAndPublishes(t *testing.T) {
	exporter := &mockExporter{path: "output/0xabc00000_20240101_000000.csv"}
	publisher := &mockPublisher{}
	tracker := newTestTracker(t, exporter, publisher, TrackerConfig{})

	result, err := tracker.ProcessAddress(context.Background(), AddressRequest{
		Address: "0xABC0000000000000000000000000000000000ABC",
		Export:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Address != testAddress {
		t.Errorf("address not normalized: %s", result.Address)
	}
	if result.TransactionCount != 2 || result.Summary.TotalTransactions != 2 {
		t.Errorf("unexpected counts %+v", result)
	}
	if result.CSVFile != exporter.path || exporter.exported != 2 {
		t.Errorf("export not recorded: %+v", result)
	}
	if result.RunID == "" || len(publisher.runIDs) != 1 || publisher.runIDs[0] != result.RunID {
		t.Errorf("publish did not carry run id: %v vs %s", publisher.runIDs, result.RunID)
	}
}

func TestProcessAddress_NoExport(t *testing.T) {
	exporter := &mockExporter{path: "x.csv"}
	tracker := newTestTracker(t, exporter, nil, TrackerConfig{})

	result, err := tracker.ProcessAddress(context.Background(), AddressRequest{Address: testAddress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CSVFile != "" || exporter.exported != 0 {
		t.Errorf("export should be skipped: %+v", result)
	}
}

func TestProcessAddress_PublishFailureIsNotFatal(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("broker down")}
	tracker := newTestTracker(t, &mockExporter{}, publisher, TrackerConfig{})

	if _, err := tracker.ProcessAddress(context.Background(), AddressRequest{Address: testAddress}); err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if publisher.published != 2 {
		t.Errorf("expected 2 published, got %d", publisher.published)
	}
}

func TestProcessAddress_ValidationErrors(t *testing.T) {
	tracker := newTestTracker(t, &mockExporter{}, nil, TrackerConfig{})

	if _, err := tracker.ProcessAddress(context.Background(), AddressRequest{Address: "0x123"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := tracker.ProcessAddress(context.Background(), AddressRequest{Address: testAddress, StartBlock: 10, EndBlock: 5}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}

func TestProcessAddress_ExportFailure(t *testing.T) {
	tracker := newTestTracker(t, &mockExporter{err: errors.New("disk full")}, nil, TrackerConfig{})
	if _, err := tracker.ProcessAddress(context.Background(), AddressRequest{Address: testAddress, Export: true}); err == nil {
		t.Error("expected export error")
	}
}

func TestProcessBatch_ContinuesAfterFailure(t *testing.T) {
	tracker := newTestTracker(t, &mockExporter{}, nil, TrackerConfig{BatchPause: time.Second})
	var pauses []time.Duration
	tracker.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	results := tracker.ProcessBatch(context.Background(), []string{testAddress, "not-an-address", testAddress}, AddressRequest{})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("valid addresses failed: %v / %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", results[1].Err)
	}
	if len(pauses) != 2 {
		t.Errorf("expected a pause between each address, got %d", len(pauses))
	}
}

func TestProcessBatch_StopsOnCancel(t *testing.T) {
	tracker := newTestTracker(t, &mockExporter{}, nil, TrackerConfig{BatchPause: time.Second})
	tracker.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	results := tracker.ProcessBatch(context.Background(), []string{testAddress, testAddress, testAddress}, AddressRequest{})
	if len(results) != 3 {
		t.Fatalf("expected every address to be reported, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("first address should succeed: %v", results[0].Err)
	}
	for _, r := range results[1:] {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", r.Err)
		}
	}
}
