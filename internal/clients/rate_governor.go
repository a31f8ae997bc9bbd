package clients

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Ledger records the last dispatch per logical endpoint. Reserve checks and
// records in one step: it returns zero and records now when at least interval
// has passed since the last dispatch, otherwise it returns the remaining
// deficit and records nothing.
type Ledger interface {
	Reserve(ctx context.Context, key string, now time.Time, interval time.Duration) (time.Duration, error)
}

type MemoryLedger struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{last: make(map[string]time.Time)}
}

func (l *MemoryLedger) Reserve(_ context.Context, key string, now time.Time, interval time.Duration) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < interval {
			return interval - elapsed, nil
		}
	}
	l.last[key] = now
	return 0, nil
}

// RateGovernor rejects a call made within interval of the previous dispatch
// to the same endpoint key.
type RateGovernor struct {
	ledger   Ledger
	clock    Clock
	interval time.Duration
}

func NewRateGovernor(ledger Ledger, clock Clock, interval time.Duration) *RateGovernor {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &RateGovernor{ledger: ledger, clock: clock, interval: interval}
}

func (g *RateGovernor) Gate(ctx context.Context, endpoint string) error {
	remaining, err := g.ledger.Reserve(ctx, endpoint, g.clock.Now(), g.interval)
	if err != nil {
		slog.Error("[RateGovernor] Ledger unavailable",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return newError(KindInternalError, 0, err, "rate ledger unavailable")
	}

	if remaining > 0 {
		slog.Warn("[RateGovernor] Rate limit exceeded",
			slog.String("endpoint", endpoint),
			slog.Duration("retry_after", remaining))
		rerr := newError(KindRateLimited, 0, nil, "rate limit exceeded for %s, retry after %s",
			endpoint, remaining.Round(time.Millisecond))
		rerr.RetryAfter = remaining
		return rerr
	}
	return nil
}
