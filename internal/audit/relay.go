package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Relay polls the audit outbox and publishes rows to Kafka. Rows are marked
// published only after a successful produce, so delivery is at-least-once and
// consumers must deduplicate on event id.
type Relay struct {
	store    *PostgresStore
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// RelayOption configures the Relay.
type RelayOption func(*Relay)

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize caps rows fetched per poll.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) { r.batch = n }
}

// NewRelay builds a relay over an existing outbox store.
func NewRelay(store *PostgresStore, brokers []string, topic string, logger *slog.Logger, opts ...RelayOption) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	r := &Relay{
		store:    store,
		client:   client,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	rows, err := r.store.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(rows))
	for i, row := range rows {
		records[i] = &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.AggregateID),
			Value: row.Payload,
		}
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.store.MarkPublished(ctx, ids)
}
