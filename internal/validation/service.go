// Package validation composes the qualifier and threshold evaluator into a
// single verdict per transaction and creates override requests for
// override-eligible violations. Rule evaluation over the two sources runs in
// parallel with no shared mutable state.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gdpgate/internal/audit"
	"gdpgate/internal/domain"
	"gdpgate/internal/override"
	"gdpgate/internal/qualifier"
	"gdpgate/internal/threshold"
	valmetrics "gdpgate/internal/validation/metrics"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/requestcontext"
)

// Verdict is the orchestrator's classification of one transaction.
type Verdict struct {
	Status      domain.ValidationStatus `json:"status"`
	Violations  []domain.Violation      `json:"violations"`
	WarningBand bool                    `json:"warning_band,omitempty"`
	// OverrideRequestID links the verdict to its override request when
	// status is OverrideRequired or OverrideApproved.
	OverrideRequestID string `json:"override_request_id,omitempty"`
}

// Config governs verdict classification.
type Config struct {
	// OverrideEligibleCodes is the closed set of violation codes that may
	// proceed via override. A violation is treated as override-eligible only
	// when both the rule tagged it eligible and its code is configured here.
	OverrideEligibleCodes []domain.ViolationCode
}

// Service is the transaction validation orchestrator.
type Service struct {
	qualifier *qualifier.Qualifier
	evaluator *threshold.Evaluator
	overrides *override.Service
	eligible  map[domain.ViolationCode]bool
	auditor   *audit.Publisher
	metrics   *valmetrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *valmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor sets the audit publisher.
func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func NewService(q *qualifier.Qualifier, e *threshold.Evaluator, o *override.Service, cfg Config, opts ...Option) *Service {
	eligible := make(map[domain.ViolationCode]bool, len(cfg.OverrideEligibleCodes))
	for _, code := range cfg.OverrideEligibleCodes {
		eligible[code] = true
	}
	s := &Service{
		qualifier: q,
		evaluator: e,
		overrides: o,
		eligible:  eligible,
		logger:    slog.Default(),
		tracer:    otel.Tracer("gdpgate/validation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate produces the verdict for one transaction. Provider unavailability
// surfaces as EXTERNAL_SYSTEM_UNAVAILABLE ("validation indeterminate"), never
// coerced into Valid or Invalid. On OverrideRequired exactly one override
// request exists afterwards; re-validating the same transaction id returns
// the same request.
func (s *Service) Validate(ctx context.Context, tx *domain.Transaction, overrideJustification string) (*Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "validation.validate")
	defer span.End()
	start := time.Now()

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var (
		qualResult *qualifier.Result
		threshResult *threshold.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.qualifier.Qualify(gctx, tx, now)
		if err != nil {
			return err
		}
		qualResult = r
		return nil
	})
	g.Go(func() error {
		r, err := s.evaluator.Evaluate(gctx, tx, now)
		if err != nil {
			return err
		}
		threshResult = r
		return nil
	})
	if err := g.Wait(); err != nil {
		if dErrors.HasCode(err, dErrors.CodeExternalUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "validation indeterminate: rule source unavailable")
		}
		return nil, err
	}

	violations := append(append([]domain.Violation(nil), qualResult.Violations...), threshResult.Violations...)
	verdict := &Verdict{
		Violations:  violations,
		WarningBand: threshResult.WarningBand,
	}
	verdict.Status = s.classify(violations)

	if verdict.Status == domain.StatusOverrideRequired {
		req, err := s.submitOverride(ctx, tx, violations, overrideJustification, now)
		if err != nil {
			return nil, err
		}
		verdict.OverrideRequestID = req.ID.String()
		if req.State == override.StateApproved {
			verdict.Status = domain.StatusOverrideApproved
		}
	}

	s.observe(ctx, tx, verdict, time.Since(start))
	return verdict, nil
}

// classify maps the violation union to a verdict status. Any blocking
// violation that is not override-eligible hard-blocks.
func (s *Service) classify(violations []domain.Violation) domain.ValidationStatus {
	blocking := domain.BlockingViolations(violations)
	if len(blocking) == 0 {
		return domain.StatusValid
	}
	for _, v := range blocking {
		if !v.OverrideEligible || !s.eligible[v.Code] {
			return domain.StatusInvalid
		}
	}
	return domain.StatusOverrideRequired
}

// submitOverride creates the override request for a violating transaction.
// Idempotent per transaction id. A caller-supplied justification shorter than
// policy fails the call; when none is supplied the request carries a
// generated summary and compliance staff review it as usual.
func (s *Service) submitOverride(ctx context.Context, tx *domain.Transaction, violations []domain.Violation, justification string, now time.Time) (*override.Request, error) {
	blocking := domain.BlockingViolations(violations)
	if justification == "" {
		justification = generatedJustification(tx, blocking)
	}
	return s.overrides.Submit(ctx, tx.ExternalID, blocking, justification, requestcontext.ActorID(ctx), now)
}

// generatedJustification summarizes the violation set for requests created by
// the orchestrator without a caller-supplied justification.
func generatedJustification(tx *domain.Transaction, violations []domain.Violation) string {
	codes := make([]string, len(violations))
	for i, v := range violations {
		codes[i] = string(v.Code)
	}
	return fmt.Sprintf("auto-created for transaction %s pending compliance review; violations: %s",
		tx.ExternalID, strings.Join(codes, ", "))
}

func (s *Service) observe(ctx context.Context, tx *domain.Transaction, verdict *Verdict, elapsed time.Duration) {
	s.metrics.IncrementVerdict(string(verdict.Status))
	for _, v := range verdict.Violations {
		s.metrics.IncrementViolation(string(v.Code))
	}
	s.metrics.ObserveValidateLatency(elapsed)

	codes := make([]string, len(verdict.Violations))
	for i, v := range verdict.Violations {
		codes[i] = string(v.Code)
	}
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Action:        audit.ActionTransactionValidated,
			TransactionID: tx.ExternalID,
			OverrideID:    verdict.OverrideRequestID,
			Decision:      string(verdict.Status),
			Reason:        strings.Join(codes, ","),
		})
	}
}
