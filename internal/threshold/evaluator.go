// Package threshold evaluates a transaction's cumulative substance
// quantities against configured ceilings. Excess inside a threshold's
// max-override percentage stays blocking but is tagged override-eligible;
// excess beyond it is an absolute rejection.
package threshold

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gdpgate/internal/domain"
	"gdpgate/internal/ruledata"
	dErrors "gdpgate/pkg/domain-errors"
)

// Result is the outcome of threshold evaluation.
type Result struct {
	WithinLimit bool
	// WarningBand is set when any scope's cumulative quantity reached the
	// warning percentage without exceeding the limit.
	WarningBand bool
	Violations  []domain.Violation
}

// Evaluator sums line quantities per threshold scope and applies limits.
type Evaluator struct {
	thresholds ruledata.ThresholdStore
	logger     *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

func New(thresholds ruledata.ThresholdStore, opts ...Option) *Evaluator {
	e := &Evaluator{
		thresholds: thresholds,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks every substance on the transaction against its active
// thresholds. A missing threshold is the permissive default (no ceiling); an
// unreachable store is EXTERNAL_SYSTEM_UNAVAILABLE and never a verdict.
func (e *Evaluator) Evaluate(ctx context.Context, tx *domain.Transaction, now time.Time) (*Result, error) {
	evalDate := tx.EvaluationDate(now)
	totals := sumBySubstance(tx)

	result := &Result{WithinLimit: true}
	for _, code := range orderedSubstances(tx) {
		quantity := totals[code]
		thresholds, err := e.thresholds.ListByScope(ctx, code)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "threshold lookup failed")
		}
		for _, t := range thresholds {
			if !t.IsActive(evalDate) {
				continue
			}
			applyThreshold(result, t, code, quantity)
		}
	}
	return result, nil
}

// applyThreshold classifies one scope total against one active threshold.
func applyThreshold(result *Result, t ruledata.Threshold, code string, quantity float64) {
	if quantity > t.Limit {
		excessPercent := (quantity - t.Limit) / t.Limit * 100
		overrideEligible := t.MaxOverridePercent > 0 && excessPercent <= t.MaxOverridePercent
		result.WithinLimit = false
		result.Violations = append(result.Violations, domain.Violation{
			Code: domain.ViolationThresholdExceeded,
			Message: fmt.Sprintf("substance %s quantity %.2f exceeds threshold %.2f %s",
				code, quantity, t.Limit, t.Unit),
			Blocking:         true,
			OverrideEligible: overrideEligible,
		})
		return
	}
	if t.WarningPercent > 0 && quantity >= t.Limit*t.WarningPercent/100 {
		result.WarningBand = true
		result.Violations = append(result.Violations, domain.Violation{
			Code: domain.WarningThresholdBand,
			Message: fmt.Sprintf("substance %s quantity %.2f is within %.0f%% of threshold %.2f %s",
				code, quantity, 100-t.WarningPercent, t.Limit, t.Unit),
		})
	}
}

// sumBySubstance aggregates line quantities per substance code.
func sumBySubstance(tx *domain.Transaction) map[string]float64 {
	totals := make(map[string]float64)
	for _, line := range tx.Lines {
		totals[line.SubstanceCode] += line.Quantity
	}
	return totals
}

// orderedSubstances returns distinct substance codes in line order so
// violation output is deterministic.
func orderedSubstances(tx *domain.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range tx.Lines {
		if !seen[line.SubstanceCode] {
			seen[line.SubstanceCode] = true
			out = append(out, line.SubstanceCode)
		}
	}
	return out
}
