//go:build integration

package override_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/internal/domain"
	"gdpgate/internal/override"
	"gdpgate/migrations"
	"gdpgate/pkg/platform/sentinel"
	"gdpgate/pkg/testutil/containers"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPostgresStore(t *testing.T) *override.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pg := containers.NewPostgresContainer(t, migrations.Schema())
	return override.NewPostgresStore(pg.Pool)
}

func pendingRequest(transactionID string) *override.Request {
	return &override.Request{
		ID:            override.NewID(),
		TransactionID: transactionID,
		Violations: []domain.Violation{{
			Code:     domain.ViolationThresholdExceeded,
			Message:  "substance EPH quantity 120.00 exceeds threshold 100.00 kg",
			Blocking: true,
		}},
		Justification: "emergency replenishment for hospital pharmacy order",
		State:         override.StatePending,
		RequestedBy:   "integration",
		CreatedAt:     now,
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	req := pendingRequest("SO-1001")
	stored, created, err := store.CreateIfAbsent(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, req.ID, stored.ID)

	found, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.TransactionID, found.TransactionID)
	assert.Equal(t, override.StatePending, found.State)
	require.Len(t, found.Violations, 1)
	assert.Equal(t, domain.ViolationThresholdExceeded, found.Violations[0].Code)

	byTxn, err := store.FindByTransaction(ctx, "SO-1001")
	require.NoError(t, err)
	assert.Equal(t, req.ID, byTxn.ID)

	_, err = store.FindByID(ctx, override.NewID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStoreCreateIfAbsentIsIdempotent(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	first, created, err := store.CreateIfAbsent(ctx, pendingRequest("SO-1001"))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := store.CreateIfAbsent(ctx, pendingRequest("SO-1001"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestPostgresStoreExecute(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	actor := domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}

	req := pendingRequest("SO-1001")
	_, _, err := store.CreateIfAbsent(ctx, req)
	require.NoError(t, err)

	approved, err := store.Execute(ctx, req.ID,
		func(r *override.Request) error { return r.CanApprove(actor) },
		func(r *override.Request) { r.ApplyApproval(actor, now) },
	)
	require.NoError(t, err)
	assert.Equal(t, override.StateApproved, approved.State)
	require.Len(t, approved.Approvals, 1)

	// The recorded approval survives a fresh read.
	found, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, override.StateApproved, found.State)
	assert.Equal(t, "alice", found.Approvals[0].ActorID)

	// A second decision sees the terminal state under the row lock.
	_, err = store.Execute(ctx, req.ID,
		func(r *override.Request) error { return r.CanReject() },
		func(r *override.Request) { r.ApplyRejection(actor, "too late", now) },
	)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestPostgresStoreConcurrentDecisions(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	req := pendingRequest("SO-1001")
	_, _, err := store.CreateIfAbsent(ctx, req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}
			_, errs[i] = store.Execute(ctx, req.ID,
				func(r *override.Request) error { return r.CanApprove(actor) },
				func(r *override.Request) { r.ApplyApproval(actor, now) },
			)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "row lock admits exactly one transition")
}

func TestPostgresStoreListPendingBefore(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	aged := pendingRequest("SO-AGED")
	aged.CreatedAt = now.Add(-100 * time.Hour)
	_, _, err := store.CreateIfAbsent(ctx, aged)
	require.NoError(t, err)

	fresh := pendingRequest("SO-FRESH")
	_, _, err = store.CreateIfAbsent(ctx, fresh)
	require.NoError(t, err)

	pending, err := store.ListPendingBefore(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, aged.ID, pending[0].ID)
}
