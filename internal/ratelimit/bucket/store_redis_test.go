//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/internal/ratelimit/bucket"
	"gdpgate/pkg/testutil/containers"
)

func TestRedisStoreAllowsUpToLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := containers.NewRedisContainer(t)
	store := bucket.NewRedisStore(rc.Client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := store.Allow(ctx, "client-a", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 5-i-1, res.Remaining)
	}

	res, err := store.Allow(ctx, "client-a", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Positive(t, res.RetryAfterSeconds(time.Now()))
}

func TestRedisStoreKeysAreIndependent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := containers.NewRedisContainer(t)
	store := bucket.NewRedisStore(rc.Client)
	ctx := context.Background()

	res, err := store.Allow(ctx, "client-a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = store.Allow(ctx, "client-a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = store.Allow(ctx, "client-b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "other key has its own window")
}

func TestRedisStoreWindowSlides(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := containers.NewRedisContainer(t)
	store := bucket.NewRedisStore(rc.Client)
	ctx := context.Background()

	window := 500 * time.Millisecond
	res, err := store.Allow(ctx, "client-a", 1, window)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = store.Allow(ctx, "client-a", 1, window)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	time.Sleep(window + 100*time.Millisecond)

	res, err = store.Allow(ctx, "client-a", 1, window)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "entries outside the window no longer count")
}
