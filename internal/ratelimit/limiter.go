// Package ratelimit throttles inbound requests before they reach the
// validation engine. Limiting is per client IP with a sliding window; when
// the distributed store fails the limiter degrades to a per-process window
// behind a circuit breaker rather than failing open entirely.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gdpgate/internal/ratelimit/bucket"
	"gdpgate/pkg/platform/circuit"
)

// Limiter checks admission against the primary store, falling back to the
// in-memory store while the breaker is open.
type Limiter struct {
	primary  bucket.Store
	fallback *bucket.MemoryStore
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger

	// probeInterval spaces half-open trials of the primary while the
	// breaker is open.
	probeInterval time.Duration
	probeMu       sync.Mutex
	nextProbe     time.Time
}

type LimiterOption func(*Limiter)

func WithLimiterLogger(l *slog.Logger) LimiterOption {
	return func(lim *Limiter) { lim.logger = l }
}

// WithProbeInterval sets how often an open limiter retries the primary.
func WithProbeInterval(d time.Duration) LimiterOption {
	return func(lim *Limiter) { lim.probeInterval = d }
}

// NewLimiter creates a limiter. A nil primary store means the in-memory
// store serves all checks directly (single-instance mode).
func NewLimiter(primary bucket.Store, limit int, window time.Duration, opts ...LimiterOption) *Limiter {
	lim := &Limiter{
		primary:       primary,
		fallback:      bucket.NewMemoryStore(),
		breaker:       circuit.New("ratelimit-store"),
		limit:         limit,
		window:        window,
		logger:        slog.Default(),
		probeInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(lim)
	}
	return lim
}

// Check counts one request for the key. The degraded flag tells the caller
// the decision came from the per-process fallback.
func (l *Limiter) Check(ctx context.Context, key string) (result bucket.Result, degraded bool, err error) {
	if l.primary == nil {
		return l.checkFallback(ctx, key, true)
	}
	if l.breaker.IsOpen() && !l.shouldProbe() {
		return l.checkFallback(ctx, key, false)
	}

	result, err = l.primary.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		_, change := l.breaker.RecordFailure()
		if change.Opened {
			l.scheduleProbe()
			l.logger.WarnContext(ctx, "rate limit store unavailable, switching to in-memory fallback", "error", err)
		}
		return l.checkFallback(ctx, key, false)
	}

	_, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered, resuming distributed limiting")
	}
	return result, false, nil
}

// shouldProbe claims the next half-open trial slot. At most one request per
// interval reaches the primary while the breaker is open.
func (l *Limiter) shouldProbe() bool {
	l.probeMu.Lock()
	defer l.probeMu.Unlock()
	now := time.Now()
	if now.Before(l.nextProbe) {
		return false
	}
	l.nextProbe = now.Add(l.probeInterval)
	return true
}

func (l *Limiter) scheduleProbe() {
	l.probeMu.Lock()
	l.nextProbe = time.Now().Add(l.probeInterval)
	l.probeMu.Unlock()
}

func (l *Limiter) checkFallback(ctx context.Context, key string, primaryAbsent bool) (bucket.Result, bool, error) {
	result, err := l.fallback.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		return bucket.Result{}, false, err
	}
	// Absence of a configured primary is normal mode, not degradation.
	return result, !primaryAbsent, nil
}
