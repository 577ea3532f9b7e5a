package override

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires pending requests past the configured maximum
// age. Expiry is idempotent, so running sweeps on multiple instances is safe:
// whichever instance wins the per-id gate performs the single transition.
type Sweeper struct {
	service  *Service
	store    Store
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, store Store, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. A zero max age disables expiry
// entirely and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.maxAge <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx, time.Now())
		}
	}
}

// sweepOnce expires everything pending past the cutoff. Errors on individual
// requests are logged and do not stop the sweep.
func (s *Sweeper) sweepOnce(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.maxAge)
	pending, err := s.store.ListPendingBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "expiry sweep listing failed", "error", err)
		return
	}
	for _, req := range pending {
		if _, err := s.service.Expire(ctx, req.ID, now); err != nil {
			s.logger.ErrorContext(ctx, "expiry failed",
				"override_id", req.ID.String(),
				"error", err,
			)
		}
	}
}
