package override

import (
	"context"
	"time"
)

// Store persists override requests. Execute serializes validate-then-mutate
// per request id (mutex per entry in memory, row lock in Postgres) so
// concurrent approve/reject/expire calls see at most one terminal transition.
type Store interface {
	// CreateIfAbsent inserts the request unless one already exists for the
	// same transaction id. Returns the stored request and whether this call
	// created it. Existing requests are returned whatever their state: an
	// override is created exactly once per violating transaction.
	CreateIfAbsent(ctx context.Context, req *Request) (*Request, bool, error)

	FindByID(ctx context.Context, id ID) (*Request, error)
	FindByTransaction(ctx context.Context, transactionID string) (*Request, error)

	// Execute runs validate then mutate under the per-request serializing
	// gate. When validate fails nothing is mutated and its error is
	// returned. Returns the post-mutation snapshot.
	Execute(ctx context.Context, id ID, validate func(*Request) error, mutate func(*Request)) (*Request, error)

	// ListPendingBefore returns pending requests created at or before the
	// cutoff, for the expiry sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*Request, error)
}
