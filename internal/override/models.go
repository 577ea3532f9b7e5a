// Package override manages the lifecycle of an override request: a human
// approval path for transactions that violated an override-eligible rule.
// Pending is the only non-terminal state; Approved, Rejected, and Expired are
// terminal with no re-open.
package override

import (
	"time"

	"github.com/google/uuid"

	"gdpgate/internal/domain"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/sentinel"
)

// ID identifies an override request.
type ID uuid.UUID

// NewID generates a fresh override request ID.
func NewID() ID { return ID(uuid.New()) }

// ParseID constructs an ID from external input.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, dErrors.New(dErrors.CodeValidation, "invalid override id")
	}
	return ID(u), nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the ID in canonical UUID form.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID form.
func (id *ID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ID(u)
	return nil
}

// IsNil reports whether the ID is the zero value.
func (id ID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// State is the override request lifecycle state.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// IsTerminal reports whether no further transition is allowed.
func (s State) IsTerminal() bool { return s != StatePending }

// Approval records one approval decision. Dual approval fills both slots;
// a two-slot record rather than a counter so distinctness is checkable.
type Approval struct {
	ActorID string              `json:"actor_id"`
	Role    domain.ApproverRole `json:"role"`
	At      time.Time           `json:"at"`
}

// Request is an override request. Always traceable to exactly one
// transaction; at most one request exists per transaction.
type Request struct {
	ID            ID                 `json:"id"`
	TransactionID string             `json:"transaction_id"`
	Violations    []domain.Violation `json:"violations"`
	Justification string             `json:"justification"`
	State         State              `json:"state"`
	RequestedBy   string             `json:"requested_by"`
	// DualApprovalRequired is set at submission when the violation set
	// intersects the configured critical codes.
	DualApprovalRequired bool `json:"dual_approval_required"`
	// Approvals holds at most two recorded approvals.
	Approvals []Approval `json:"approvals,omitempty"`
	// ResolvedBy is the actor that rejected, or empty for expiry.
	ResolvedBy   string     `json:"resolved_by,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// RequiredApprovals is how many distinct approvals this request needs.
func (r *Request) RequiredApprovals() int {
	if r.DualApprovalRequired {
		return 2
	}
	return 1
}

// CanApprove validates an approval attempt without mutating. The second
// approval of a dual-approval request must come from a distinct user and a
// distinct role.
func (r *Request) CanApprove(actor domain.Actor) error {
	if r.State.IsTerminal() {
		return sentinel.ErrInvalidState
	}
	for _, a := range r.Approvals {
		if a.ActorID == actor.ID {
			return dErrors.New(dErrors.CodeUnauthorized, "second approval must come from a distinct user")
		}
		if a.Role == actor.Role {
			return dErrors.New(dErrors.CodeUnauthorized, "second approval must come from a distinct role")
		}
	}
	return nil
}

// ApplyApproval records an approval and transitions to Approved once all
// required approvals are present.
func (r *Request) ApplyApproval(actor domain.Actor, at time.Time) {
	r.Approvals = append(r.Approvals, Approval{ActorID: actor.ID, Role: actor.Role, At: at})
	if len(r.Approvals) >= r.RequiredApprovals() {
		r.State = StateApproved
		r.ResolvedAt = &at
	}
}

// CanReject validates a rejection attempt. Rejection does not require dual
// confirmation.
func (r *Request) CanReject() error {
	if r.State.IsTerminal() {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyRejection transitions to Rejected.
func (r *Request) ApplyRejection(actor domain.Actor, reason string, at time.Time) {
	r.State = StateRejected
	r.ResolvedBy = actor.ID
	r.RejectReason = reason
	r.ResolvedAt = &at
}

// ExpiredBy reports whether the request has outlived maxAge at the given
// time. A zero maxAge disables expiry.
func (r *Request) ExpiredBy(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(r.CreatedAt) >= maxAge
}

// ApplyExpiry transitions to Expired.
func (r *Request) ApplyExpiry(at time.Time) {
	r.State = StateExpired
	r.ResolvedAt = &at
}

// Clone returns a deep copy so store snapshots never share slices with
// callers.
func (r *Request) Clone() *Request {
	clone := *r
	clone.Violations = append([]domain.Violation(nil), r.Violations...)
	clone.Approvals = append([]Approval(nil), r.Approvals...)
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		clone.ResolvedAt = &t
	}
	return &clone
}
