package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_SpacesSequentialCalls(t *testing.T) {
	limiter := NewWithInterval(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected at least 40ms for three calls, got %v", elapsed)
	}
}

func TestLimiter_FirstCallDoesNotWait(t *testing.T) {
	limiter := NewWithInterval(time.Second)
	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call should be immediate, took %v", elapsed)
	}
}

func TestLimiter_ConcurrentCallersAreSerialized(t *testing.T) {
	limiter := NewWithInterval(15 * time.Millisecond)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				t.Errorf("wait failed: %v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(times) != 4 {
		t.Fatalf("expected 4 grants, got %d", len(times))
	}
	first, last := times[0], times[0]
	for _, ts := range times {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	if spread := last.Sub(first); spread < 45*time.Millisecond {
		t.Errorf("expected grants spread over at least 45ms, got %v", spread)
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewWithInterval(time.Hour)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNew_DerivesInterval(t *testing.T) {
	if got := New(5).MinInterval(); got != 200*time.Millisecond {
		t.Errorf("expected 200ms, got %v", got)
	}
	if got := New(0).MinInterval(); got != 0 {
		t.Errorf("expected no spacing, got %v", got)
	}
}
