// Package bucket implements sliding-window request counting for admission
// rate limiting.
package bucket

import (
	"context"
	"time"
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfterSeconds is the wait hint for a denied request.
func (r Result) RetryAfterSeconds(now time.Time) int {
	if r.Allowed {
		return 0
	}
	wait := int(r.ResetAt.Sub(now).Seconds())
	if wait < 1 {
		wait = 1
	}
	return wait
}

// Store counts requests per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
