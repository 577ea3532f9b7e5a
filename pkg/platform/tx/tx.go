// Package tx passes a SQL transaction through context so the audit outbox
// write can join a caller's transaction when one is open. The outbox insert
// must commit atomically with the state change it records.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in the context for downstream stores.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts the SQL transaction from the context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(txKey).(*sql.Tx)
	return t, ok
}

// Execer is the subset of database/sql both *sql.DB and *sql.Tx satisfy.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecerFrom returns the context's transaction when present, the fallback
// otherwise.
func ExecerFrom(ctx context.Context, fallback Execer) Execer {
	if t, ok := From(ctx); ok {
		return t
	}
	return fallback
}
