// Package notify dispatches override-workflow notifications. Dispatch is
// at-least-once: a retried transition may notify twice, which recipients
// tolerate; a lost notification is logged, never fatal to the transition.
package notify

import (
	"context"
	"log/slog"
)

// Kind labels what happened.
type Kind string

const (
	KindOverrideSubmitted Kind = "override_submitted"
	KindOverrideApproved  Kind = "override_approved"
	KindOverrideRejected  Kind = "override_rejected"
	KindOverrideExpired   Kind = "override_expired"
)

// Notification is one message to the configured recipients.
type Notification struct {
	Kind          Kind
	OverrideID    string
	TransactionID string
	Detail        string
}

// Dispatcher sends notifications to compliance staff.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Config selects which transitions notify and who receives them.
type Config struct {
	OnApproval  bool
	OnRejection bool
	Recipients  []string
}

// LogDispatcher writes notifications to the structured log. Stands in for a
// mail/queue integration in development and tests.
type LogDispatcher struct {
	logger *slog.Logger
	cfg    Config
}

func NewLogDispatcher(logger *slog.Logger, cfg Config) *LogDispatcher {
	return &LogDispatcher{logger: logger, cfg: cfg}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if n.Kind == KindOverrideApproved && !d.cfg.OnApproval {
		return nil
	}
	if n.Kind == KindOverrideRejected && !d.cfg.OnRejection {
		return nil
	}
	d.logger.InfoContext(ctx, "notification dispatched",
		"kind", string(n.Kind),
		"override_id", n.OverrideID,
		"transaction_id", n.TransactionID,
		"recipients", d.cfg.Recipients,
		"detail", n.Detail,
	)
	return nil
}
