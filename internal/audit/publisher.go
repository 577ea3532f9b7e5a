package audit

import (
	"context"
	"log/slog"

	"gdpgate/pkg/requestcontext"
)

// Publisher captures structured audit events. Append failures are logged and
// surfaced to the caller; transitions that already happened are not rolled
// back, so callers treat the trail as at-least-once.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event, filling in timestamp and correlation ID from the
// context when absent.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", string(event.Action),
			"transaction_id", event.TransactionID,
			"error", err,
		)
		return err
	}
	return nil
}
