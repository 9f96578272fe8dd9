package dockerrt_test

import (
	"context"
	"testing"

	"enginefleet/internal/dockerrt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRuntimeDefaults(t *testing.T) {
	rt := &dockerrt.MockRuntime{}
	ctx := context.Background()

	_, err := rt.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, dockerrt.IsNotFound(err))

	c, err := rt.Run(ctx, dockerrt.ContainerSpec{Name: "engine-alice"})
	require.NoError(t, err)
	assert.Equal(t, "engine-alice", c.Name)

	info, err := rt.Info(ctx)
	require.NoError(t, err)
	assert.Greater(t, info.CPUCount, 0)
}

func TestMockRuntimeOverrides(t *testing.T) {
	called := false
	rt := &dockerrt.MockRuntime{
		RemoveFunc: func(ctx context.Context, name string, withVolume bool) error {
			called = true
			assert.Equal(t, "engine-bob", name)
			assert.True(t, withVolume)
			return nil
		},
	}

	require.NoError(t, rt.Remove(context.Background(), "engine-bob", true))
	assert.True(t, called)
}
