package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/internal/ratelimit/bucket"
)

// flakyStore fails while broken and otherwise counts in memory.
type flakyStore struct {
	broken bool
	inner  *bucket.MemoryStore
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: bucket.NewMemoryStore()}
}

func (s *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bucket.Result, error) {
	if s.broken {
		return bucket.Result{}, errors.New("connection refused")
	}
	return s.inner.Allow(ctx, key, limit, window)
}

func TestCheckWithoutPrimaryIsNotDegraded(t *testing.T) {
	limiter := NewLimiter(nil, 5, time.Minute)

	result, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.False(t, degraded, "single-instance mode is normal operation")
}

func TestCheckUsesPrimaryWhenHealthy(t *testing.T) {
	primary := newFlakyStore()
	limiter := NewLimiter(primary, 2, time.Minute)

	for i := 0; i < 2; i++ {
		result, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.False(t, degraded)
	}

	result, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.False(t, degraded)
}

func TestCheckFallsBackOnPrimaryFailure(t *testing.T) {
	primary := newFlakyStore()
	primary.broken = true
	limiter := NewLimiter(primary, 5, time.Minute)

	result, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.True(t, degraded, "fallback decisions are flagged for the caller")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	primary := newFlakyStore()
	primary.broken = true
	limiter := NewLimiter(primary, 100, time.Minute)

	// Five consecutive failures open the breaker.
	for i := 0; i < 5; i++ {
		_, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, degraded)
	}
	require.True(t, limiter.breaker.IsOpen())

	// Before the probe interval elapses the primary is left alone even
	// after it recovers.
	primary.broken = false
	_, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, degraded, "open breaker keeps serving from the fallback")
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	primary := newFlakyStore()
	primary.broken = true
	limiter := NewLimiter(primary, 100, time.Minute, WithProbeInterval(0))

	for i := 0; i < 5; i++ {
		_, _, err := limiter.Check(context.Background(), "ip:10.0.0.1")
		require.NoError(t, err)
	}
	require.True(t, limiter.breaker.IsOpen())

	// A zero probe interval lets every check trial the primary, so three
	// successful probes close the breaker again.
	primary.broken = false
	for i := 0; i < 3; i++ {
		_, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
		require.NoError(t, err)
		assert.False(t, degraded, "probe decisions come from the primary")
	}
	assert.False(t, limiter.breaker.IsOpen())
}

func TestFallbackStillEnforcesLimit(t *testing.T) {
	primary := newFlakyStore()
	primary.broken = true
	limiter := NewLimiter(primary, 2, time.Minute)

	for i := 0; i < 2; i++ {
		result, _, err := limiter.Check(context.Background(), "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, degraded, err := limiter.Check(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "degraded limiting still limits")
	assert.True(t, degraded)
}
