package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces calls at least MinInterval apart. One Limiter is shared by
// every request path of a client.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
	now         func() time.Time
}

// New returns a limiter allowing callsPerSecond calls. A non-positive rate
// disables spacing.
func New(callsPerSecond float64) *Limiter {
	var interval time.Duration
	if callsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / callsPerSecond)
	}
	return &Limiter{minInterval: interval, now: time.Now}
}

// NewWithInterval returns a limiter with an explicit minimum spacing.
func NewWithInterval(interval time.Duration) *Limiter {
	if interval < 0 {
		interval = 0
	}
	return &Limiter{minInterval: interval, now: time.Now}
}

func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

// Wait blocks until the next call slot. The elapsed check, the sleep and the
// timestamp update happen under one lock so concurrent callers cannot pass
// the check together.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastCall.IsZero() {
		elapsed := l.now().Sub(l.lastCall)
		if remaining := l.minInterval - elapsed; remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	l.lastCall = l.now()
	return nil
}
