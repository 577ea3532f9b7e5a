package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gdpgate/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the relay
// worker; Kafka is the downstream source of truth for audit consumers.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an outbox-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a database/sql handle with the pq driver for the audit
// outbox.
func OpenPostgres(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "transaction"
	aggregateID := event.TransactionID
	if event.OverrideID != "" {
		aggregateType = "override"
		aggregateID = event.OverrideID
	}

	// Joins the caller's transaction when one is on the context so the outbox
	// row commits with the state change it records.
	_, err = tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), aggregateType, aggregateID, string(event.Action), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert audit outbox row: %w", err)
	}
	return nil
}

// OutboxRow is an unpublished audit event awaiting relay to Kafka.
type OutboxRow struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// FetchUnpublished returns up to limit unpublished outbox rows in insertion
// order.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var r OutboxRow
		if err := rows.Scan(&r.ID, &r.AggregateID, &r.EventType, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox rows after a successful Kafka produce. Safe to
// re-run; relaying is at-least-once.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1)
	`, pq.Array(strs), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark audit outbox published: %w", err)
	}
	return nil
}
