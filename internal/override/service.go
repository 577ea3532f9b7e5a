package override

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gdpgate/internal/audit"
	"gdpgate/internal/domain"
	"gdpgate/internal/notify"
	overridemetrics "gdpgate/internal/override/metrics"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/sentinel"
)

// Config governs the approval workflow.
type Config struct {
	ApproverRoles        []domain.ApproverRole
	RequireJustification bool
	MinJustificationLen  int
	// MaxOverrideAge expires pending requests; zero disables auto-expiry.
	MaxOverrideAge time.Duration
	// CriticalCodes require dual approval when present in the violation set.
	CriticalCodes []domain.ViolationCode
}

// Service is the override approval state machine. Every transition emits an
// audit event and a notification; the store's per-id gate guarantees at most
// one terminal transition per request.
type Service struct {
	store    Store
	cfg      Config
	auditor  *audit.Publisher
	notifier notify.Dispatcher
	metrics  *overridemetrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *overridemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier sets the notification dispatcher.
func WithNotifier(n notify.Dispatcher) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAuditor sets the audit publisher.
func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func NewService(store Store, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("gdpgate/override"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a Pending override request for a violating transaction.
// Idempotent per transaction id: when a request already exists it is returned
// unchanged, whatever its state. Justification policy is enforced before any
// state is created.
func (s *Service) Submit(ctx context.Context, transactionID string, violations []domain.Violation, justification, requestedBy string, now time.Time) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "override.submit")
	defer span.End()

	if s.cfg.RequireJustification {
		if len(strings.TrimSpace(justification)) < s.cfg.MinJustificationLen {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"justification must be at least %d characters", s.cfg.MinJustificationLen)
		}
	}
	if len(violations) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "override request requires at least one violation")
	}

	req := &Request{
		ID:                   NewID(),
		TransactionID:        transactionID,
		Violations:           violations,
		Justification:        justification,
		State:                StatePending,
		RequestedBy:          requestedBy,
		DualApprovalRequired: s.requiresDualApproval(violations),
		CreatedAt:            now,
	}

	stored, created, err := s.store.CreateIfAbsent(ctx, req)
	if err != nil {
		return nil, storeErr(err)
	}
	if !created {
		return stored, nil
	}

	s.metrics.IncrementTransition(string(StatePending))
	s.metrics.PendingDelta(1)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionOverrideSubmitted,
		TransactionID: transactionID,
		OverrideID:    stored.ID.String(),
		Decision:      string(StatePending),
		ActorID:       requestedBy,
	})
	s.dispatch(ctx, notify.Notification{
		Kind:          notify.KindOverrideSubmitted,
		OverrideID:    stored.ID.String(),
		TransactionID: transactionID,
		Detail:        "override pending approval",
	})
	return stored, nil
}

// Get returns the request by id.
func (s *Service) Get(ctx context.Context, id ID) (*Request, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return req, nil
}

// GetByTransaction returns the request linked to a transaction, if any.
func (s *Service) GetByTransaction(ctx context.Context, transactionID string) (*Request, error) {
	req, err := s.store.FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, storeErr(err)
	}
	return req, nil
}

// Approve records one approval. The request transitions to Approved only when
// all required approvals are present; a dual-approval request stays Pending
// after the first. Authorization failures mutate nothing.
func (s *Service) Approve(ctx context.Context, id ID, actor domain.Actor, now time.Time) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "override.approve")
	defer span.End()

	if !actor.IsAuthorized(s.cfg.ApproverRoles) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "role "+actor.Role.String()+" may not approve overrides")
	}

	req, err := s.store.Execute(ctx, id,
		func(r *Request) error { return r.CanApprove(actor) },
		func(r *Request) { r.ApplyApproval(actor, now) },
	)
	if err != nil {
		return nil, storeErr(err)
	}

	if req.State == StateApproved {
		s.metrics.IncrementTransition(string(StateApproved))
		s.metrics.PendingDelta(-1)
		s.emit(ctx, audit.Event{
			Action:        audit.ActionOverrideApproved,
			TransactionID: req.TransactionID,
			OverrideID:    req.ID.String(),
			Decision:      string(StateApproved),
			ActorID:       actor.ID,
		})
		s.dispatch(ctx, notify.Notification{
			Kind:          notify.KindOverrideApproved,
			OverrideID:    req.ID.String(),
			TransactionID: req.TransactionID,
			Detail:        "override approved",
		})
		return req, nil
	}

	// First of two approvals recorded; no state transition yet.
	s.emit(ctx, audit.Event{
		Action:        audit.ActionOverrideApprovalRecorded,
		TransactionID: req.TransactionID,
		OverrideID:    req.ID.String(),
		Decision:      string(StatePending),
		Reason:        "dual approval: first approval recorded",
		ActorID:       actor.ID,
	})
	return req, nil
}

// Reject transitions a pending request to Rejected. Rejection needs a reason
// of the configured minimum length but never dual confirmation.
func (s *Service) Reject(ctx context.Context, id ID, actor domain.Actor, reason string, now time.Time) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "override.reject")
	defer span.End()

	if !actor.IsAuthorized(s.cfg.ApproverRoles) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "role "+actor.Role.String()+" may not reject overrides")
	}
	if len(strings.TrimSpace(reason)) < s.cfg.MinJustificationLen {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"rejection reason must be at least %d characters", s.cfg.MinJustificationLen)
	}

	req, err := s.store.Execute(ctx, id,
		func(r *Request) error { return r.CanReject() },
		func(r *Request) { r.ApplyRejection(actor, reason, now) },
	)
	if err != nil {
		return nil, storeErr(err)
	}

	s.metrics.IncrementTransition(string(StateRejected))
	s.metrics.PendingDelta(-1)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionOverrideRejected,
		TransactionID: req.TransactionID,
		OverrideID:    req.ID.String(),
		Decision:      string(StateRejected),
		Reason:        reason,
		ActorID:       actor.ID,
	})
	s.dispatch(ctx, notify.Notification{
		Kind:          notify.KindOverrideRejected,
		OverrideID:    req.ID.String(),
		TransactionID: req.TransactionID,
		Detail:        reason,
	})
	return req, nil
}

// Expire transitions a pending request past its configured age to Expired.
// Idempotent: invoking on an already-terminal request is a no-op, not an
// error, so concurrent sweeps on multiple instances are safe.
func (s *Service) Expire(ctx context.Context, id ID, now time.Time) (*Request, error) {
	req, err := s.store.Execute(ctx, id,
		func(r *Request) error {
			if r.State.IsTerminal() {
				return sentinel.ErrInvalidState
			}
			if !r.ExpiredBy(now, s.cfg.MaxOverrideAge) {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(r *Request) { r.ApplyExpiry(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Already terminal or not yet old enough: no-op.
			return s.Get(ctx, id)
		}
		return nil, storeErr(err)
	}

	s.metrics.IncrementTransition(string(StateExpired))
	s.metrics.PendingDelta(-1)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionOverrideExpired,
		TransactionID: req.TransactionID,
		OverrideID:    req.ID.String(),
		Decision:      string(StateExpired),
		Reason:        "pending request exceeded maximum age",
	})
	s.dispatch(ctx, notify.Notification{
		Kind:          notify.KindOverrideExpired,
		OverrideID:    req.ID.String(),
		TransactionID: req.TransactionID,
		Detail:        "override expired without decision",
	})
	return req, nil
}

func (s *Service) requiresDualApproval(violations []domain.Violation) bool {
	for _, v := range violations {
		for _, critical := range s.cfg.CriticalCodes {
			if v.Code == critical {
				return true
			}
		}
	}
	return false
}

// emit appends an audit event; failures are logged by the publisher and do
// not undo the transition.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func (s *Service) dispatch(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "notification dispatch failed",
			"kind", string(n.Kind),
			"override_id", n.OverrideID,
			"error", err,
		)
	}
}

// storeErr translates sentinel store errors into coded domain errors.
func storeErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "override request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "override request is already resolved")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "override store unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "override operation cancelled")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "override store failure")
}
