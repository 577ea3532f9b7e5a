// Package qualifier determines whether a transaction's customer may trade:
// not suspended, approved, and holding a current licence covering every
// substance on the transaction. Rules run in a fixed order and the result
// aggregates every violated rule, not just the first.
package qualifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gdpgate/internal/domain"
	"gdpgate/internal/ruledata"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/sentinel"
)

// Result is the outcome of customer/licence qualification. OK is true when no
// blocking violation was found; warnings never block.
type Result struct {
	OK         bool
	Violations []domain.Violation
}

// Qualifier evaluates the customer-standing and licence rules.
type Qualifier struct {
	profiles ruledata.ProfileStore
	licences ruledata.LicenceStore
	logger   *slog.Logger
}

// Option configures a Qualifier.
type Option func(*Qualifier)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Qualifier) { q.logger = logger }
}

func New(profiles ruledata.ProfileStore, licences ruledata.LicenceStore, opts ...Option) *Qualifier {
	q := &Qualifier{
		profiles: profiles,
		licences: licences,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Qualify runs the rule chain against the transaction. Rule order is fixed:
// suspension, approval, licence presence, licence currency, re-verification
// warning. A provider failure aborts with EXTERNAL_SYSTEM_UNAVAILABLE; it is
// never coerced into a business violation.
func (q *Qualifier) Qualify(ctx context.Context, tx *domain.Transaction, now time.Time) (*Result, error) {
	profile, err := q.profiles.FindByCustomer(ctx, tx.Customer)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "customer profile lookup failed")
	}

	licences, err := q.licences.ListByHolder(ctx, tx.Customer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "licence lookup failed")
	}

	evalDate := tx.EvaluationDate(now)
	var violations []domain.Violation
	violations = append(violations, customerViolations(profile)...)
	violations = append(violations, licenceViolations(tx, licences, evalDate)...)
	if profile != nil && profile.ReverificationDue(now) {
		violations = append(violations, domain.Violation{
			Code:    domain.WarningReVerificationDue,
			Message: fmt.Sprintf("customer re-verification was due %s", profile.NextReverification.Format("2006-01-02")),
		})
	}

	return &Result{
		OK:         len(domain.BlockingViolations(violations)) == 0,
		Violations: violations,
	}, nil
}

// customerViolations applies the customer-standing rules. A missing profile
// counts as not approved: the permissive default never applies to customer
// qualification.
func customerViolations(profile *ruledata.CustomerProfile) []domain.Violation {
	if profile == nil {
		return []domain.Violation{{
			Code:     domain.ViolationCustomerNotApproved,
			Message:  "no compliance profile on record for customer",
			Blocking: true,
		}}
	}

	var violations []domain.Violation
	if profile.Suspended {
		msg := "customer is suspended"
		if profile.SuspensionReason != "" {
			msg += ": " + profile.SuspensionReason
		}
		violations = append(violations, domain.Violation{
			Code:     domain.ViolationCustomerSuspended,
			Message:  msg,
			Blocking: true,
		})
	}
	if profile.ApprovalStatus != ruledata.ApprovalApproved {
		violations = append(violations, domain.Violation{
			Code:     domain.ViolationCustomerNotApproved,
			Message:  "customer approval status is " + string(profile.ApprovalStatus),
			Blocking: true,
		})
	} else if profile.GDPStatus == ruledata.GDPDisqualified {
		violations = append(violations, domain.Violation{
			Code:     domain.ViolationCustomerNotApproved,
			Message:  "customer is GDP disqualified",
			Blocking: true,
		})
	}
	return violations
}

// licenceViolations checks, per distinct substance code in line order, that a
// current licence covers the scope. A covering licence whose only defect is
// expiry yields LICENCE_EXPIRED; anything else yields LICENCE_MISSING.
func licenceViolations(tx *domain.Transaction, licences []ruledata.Licence, evalDate time.Time) []domain.Violation {
	var violations []domain.Violation
	seen := make(map[string]bool)
	for _, line := range tx.Lines {
		code := line.SubstanceCode
		if seen[code] {
			continue
		}
		seen[code] = true

		var covering []ruledata.Licence
		for _, l := range licences {
			if l.Covers(code) {
				covering = append(covering, l)
			}
		}

		current := false
		expiredOnly := false
		for _, l := range covering {
			if l.IsCurrent(evalDate) {
				current = true
				break
			}
			if (l.Status == ruledata.LicenceValid || l.Status == ruledata.LicenceExpired) &&
				l.ExpiryDate != nil && l.ExpiryDate.Before(evalDate) {
				expiredOnly = true
			}
		}
		if current {
			continue
		}
		if expiredOnly {
			violations = append(violations, domain.Violation{
				Code:     domain.ViolationLicenceExpired,
				Message:  fmt.Sprintf("licence covering substance %s has expired", code),
				Blocking: true,
			})
			continue
		}
		violations = append(violations, domain.Violation{
			Code:     domain.ViolationLicenceMissing,
			Message:  fmt.Sprintf("no current licence covers substance %s", code),
			Blocking: true,
		})
	}
	return violations
}
