//go:build integration

package jobstore_test

import (
	"context"
	"testing"
	"time"

	"enginefleet/internal/jobstore"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: stripScheme(addr)})
	defer client.Close()

	store := jobstore.NewRedisStore(client, time.Minute, time.Second)
	jobID := "integration-job"

	require.NoError(t, store.Init(ctx, jobID))
	state, err := store.GetState(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatePending, state)

	require.NoError(t, store.Append(ctx, jobID, jobstore.Event{"status": "info", "message": "pulling"}))
	require.NoError(t, store.SetState(ctx, jobID, jobstore.StateComplete))

	events, err := store.Since(ctx, jobID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "info", events[0]["status"])

	require.NoError(t, store.Shorten(ctx, jobID))
}

// stripScheme drops the redis:// prefix testcontainers' ConnectionString
// returns; go-redis's basic client wants a bare host:port address.
func stripScheme(addr string) string {
	const prefix = "redis://"
	if len(addr) > len(prefix) && addr[:len(prefix)] == prefix {
		return addr[len(prefix):]
	}
	return addr
}
