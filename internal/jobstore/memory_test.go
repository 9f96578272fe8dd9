package jobstore_test

import (
	"context"
	"testing"

	"enginefleet/internal/jobstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := jobstore.NewMemoryStore()
	ctx := context.Background()
	jobID := "abc-123"

	require.NoError(t, store.Init(ctx, jobID))
	state, err := store.GetState(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatePending, state)

	require.NoError(t, store.Append(ctx, jobID, jobstore.Event{"status": "info", "message": "pulling image"}))
	require.NoError(t, store.SetState(ctx, jobID, jobstore.StateRunning))
	require.NoError(t, store.Append(ctx, jobID, jobstore.Event{"status": "complete", "message": "done"}))
	require.NoError(t, store.SetState(ctx, jobID, jobstore.StateComplete))

	events, err := store.Since(ctx, jobID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = store.Since(ctx, jobID, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "complete", events[0]["status"])

	require.NoError(t, store.Shorten(ctx, jobID))
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	store := jobstore.NewMemoryStore()
	state, err := store.GetState(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateUnknown, state)
}

func TestMemoryStoreListOnlyPendingAndRunning(t *testing.T) {
	store := jobstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "pending-job"))
	require.NoError(t, store.Init(ctx, "running-job"))
	require.NoError(t, store.SetState(ctx, "running-job", jobstore.StateRunning))
	require.NoError(t, store.Init(ctx, "done-job"))
	require.NoError(t, store.SetState(ctx, "done-job", jobstore.StateComplete))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pending-job", "running-job"}, ids)
}

func TestMemoryStorePingAlwaysHealthy(t *testing.T) {
	store := jobstore.NewMemoryStore()
	assert.NoError(t, store.Ping(context.Background()))
}
