// Package audit captures the compliance audit trail: every verdict and every
// override transition is appended as an event. Postgres persists events via a
// transactional outbox; a relay worker publishes outbox rows to Kafka.
package audit

import (
	"context"
	"time"
)

// Action identifies what happened.
type Action string

const (
	ActionTransactionValidated     Action = "transaction_validated"
	ActionOverrideSubmitted        Action = "override_submitted"
	ActionOverrideApprovalRecorded Action = "override_approval_recorded"
	ActionOverrideApproved         Action = "override_approved"
	ActionOverrideRejected         Action = "override_rejected"
	ActionOverrideExpired          Action = "override_expired"
)

// Event is emitted from domain logic to capture key actions. Kept
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OverrideID    string    `json:"override_id,omitempty"`
	// Decision is the verdict or resulting state.
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string `json:"request_id,omitempty"`
}

// Store appends audit events. Append-only; there is no update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
}
