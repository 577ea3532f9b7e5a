package override

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gdpgate/pkg/platform/sentinel"
)

// PostgresStore persists override requests. Execute serializes per request id
// with SELECT ... FOR UPDATE, matching the memory store's per-entry mutex.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const overrideColumns = `
	id, transaction_id, violations, justification, state, requested_by,
	dual_approval_required, approvals, resolved_by, reject_reason,
	created_at, resolved_at
`

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, req *Request) (*Request, bool, error) {
	violations, err := json.Marshal(req.Violations)
	if err != nil {
		return nil, false, fmt.Errorf("marshal violations: %w", err)
	}
	approvals, err := json.Marshal(req.Approvals)
	if err != nil {
		return nil, false, fmt.Errorf("marshal approvals: %w", err)
	}

	// The unique index on transaction_id makes create-or-return atomic.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO override_requests (`+overrideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		req.ID.String(), req.TransactionID, violations, req.Justification,
		req.State, req.RequestedBy, req.DualApprovalRequired, approvals,
		req.ResolvedBy, req.RejectReason, req.CreatedAt, req.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, findErr := s.FindByTransaction(ctx, req.TransactionID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, unavailable("insert override request", err)
	}
	return req.Clone(), true, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id ID) (*Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM override_requests WHERE id = $1
	`, id.String())
	return scanRequest(row)
}

func (s *PostgresStore) FindByTransaction(ctx context.Context, transactionID string) (*Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM override_requests WHERE transaction_id = $1
	`, transactionID)
	return scanRequest(row)
}

func (s *PostgresStore) Execute(ctx context.Context, id ID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin override tx", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM override_requests WHERE id = $1
		FOR UPDATE
	`, id.String())
	req, err := scanRequest(row)
	if err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)

	approvals, err := json.Marshal(req.Approvals)
	if err != nil {
		return nil, fmt.Errorf("marshal approvals: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE override_requests
		SET state = $2, approvals = $3, resolved_by = $4, reject_reason = $5,
		    resolved_at = $6
		WHERE id = $1
	`, id.String(), req.State, approvals, req.ResolvedBy, req.RejectReason, req.ResolvedAt); err != nil {
		return nil, unavailable("update override request", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit override tx", err)
	}
	return req, nil
}

func (s *PostgresStore) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM override_requests
		WHERE state = $1 AND created_at <= $2
	`, StatePending, cutoff)
	if err != nil {
		return nil, unavailable("query pending overrides", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate pending overrides", err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		req        Request
		idStr      string
		violations []byte
		approvals  []byte
	)
	err := row.Scan(
		&idStr, &req.TransactionID, &violations, &req.Justification,
		&req.State, &req.RequestedBy, &req.DualApprovalRequired, &approvals,
		&req.ResolvedBy, &req.RejectReason, &req.CreatedAt, &req.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("scan override request", err)
	}
	id, err := ParseID(idStr)
	if err != nil {
		return nil, fmt.Errorf("stored override id invalid: %w", err)
	}
	req.ID = id
	if err := json.Unmarshal(violations, &req.Violations); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	if len(approvals) > 0 {
		if err := json.Unmarshal(approvals, &req.Approvals); err != nil {
			return nil, fmt.Errorf("unmarshal approvals: %w", err)
		}
	}
	return &req, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
