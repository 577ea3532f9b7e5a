package ruledata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gdpgate/internal/domain"
	"gdpgate/pkg/platform/sentinel"
)

// PostgresStore reads rule data from the master-data schema. Connection-level
// failures surface as sentinel.ErrUnavailable so the orchestrator reports
// ValidationIndeterminate instead of a business verdict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*Licence, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT number, type, holder_type, holder_id, issuing_authority,
		       issue_date, expiry_date, status, substance_scopes
		FROM licences
		WHERE number = $1
	`, number)
	l, err := scanLicence(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("query licence", err)
	}
	return l, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, customer domain.CustomerKey) ([]Licence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT number, type, holder_type, holder_id, issuing_authority,
		       issue_date, expiry_date, status, substance_scopes
		FROM licences
		WHERE holder_id = $1
	`, customer.Account)
	if err != nil {
		return nil, unavailable("query licences by holder", err)
	}
	defer rows.Close()

	var out []Licence
	for rows.Next() {
		l, err := scanLicence(rows)
		if err != nil {
			return nil, unavailable("scan licence", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate licences", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByCustomer(ctx context.Context, customer domain.CustomerKey) (*CustomerProfile, error) {
	var p CustomerProfile
	p.Customer = customer
	err := s.pool.QueryRow(ctx, `
		SELECT business_category, approval_status, gdp_status,
		       suspended, suspension_reason, next_reverification
		FROM customer_profiles
		WHERE account = $1 AND data_area = $2
	`, customer.Account, customer.DataArea).Scan(
		&p.BusinessCategory, &p.ApprovalStatus, &p.GDPStatus,
		&p.Suspended, &p.SuspensionReason, &p.NextReverification,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("query customer profile", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListByScope(ctx context.Context, substanceCode string) ([]Threshold, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, substance_codes, limit_value, unit, warning_percent,
		       max_override_percent, effective_from, effective_to
		FROM thresholds
		WHERE $1 = ANY(substance_codes)
	`, substanceCode)
	if err != nil {
		return nil, unavailable("query thresholds", err)
	}
	defer rows.Close()

	var out []Threshold
	for rows.Next() {
		var t Threshold
		if err := rows.Scan(
			&t.ID, &t.SubstanceCodes, &t.Limit, &t.Unit, &t.WarningPercent,
			&t.MaxOverridePercent, &t.EffectiveFrom, &t.EffectiveTo,
		); err != nil {
			return nil, unavailable("scan threshold", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate thresholds", err)
	}
	return out, nil
}

func scanLicence(row pgx.Row) (*Licence, error) {
	var l Licence
	if err := row.Scan(
		&l.Number, &l.Type, &l.HolderType, &l.HolderID, &l.IssuingAuthority,
		&l.IssueDate, &l.ExpiryDate, &l.Status, &l.SubstanceScopes,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
