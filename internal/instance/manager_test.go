package instance_test

import (
	"context"
	"testing"
	"time"

	"enginefleet/internal/apperr"
	"enginefleet/internal/config"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/instance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.BaseDomain = "example.com"
	return cfg
}

func TestValidName(t *testing.T) {
	assert.True(t, instance.ValidName("alice"))
	assert.True(t, instance.ValidName("alice-bob2"))
	assert.False(t, instance.ValidName("Alice"))
	assert.False(t, instance.ValidName("a"))
	assert.False(t, instance.ValidName("-alice"))
	assert.False(t, instance.ValidName("alice-"))
}

func TestValidVersion(t *testing.T) {
	assert.True(t, instance.ValidVersion("latest"))
	assert.True(t, instance.ValidVersion("1.123.20"))
	assert.False(t, instance.ValidVersion("2.0.0"))
	assert.False(t, instance.ValidVersion("v1.0.0"))
}

func TestNamingIsDeterministic(t *testing.T) {
	assert.Equal(t, "engine-alice", instance.ContainerName("alice"))
	assert.Equal(t, "engine-data-alice", instance.VolumeName("alice"))
	assert.Equal(t, "alice.example.com", instance.Subdomain("alice", "example.com"))
	assert.Equal(t, "https://alice.example.com/", instance.URL("alice", "example.com", "https"))
}

func TestBuildLabelsIncludesManagementAndRoutingLabels(t *testing.T) {
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	labels := instance.BuildLabels("alice", "example.com", createdAt, true, "cloudflare")

	assert.Equal(t, "true", labels["traefik.enable"])
	assert.Equal(t, "Host(`alice.example.com`)", labels["traefik.http.routers.engine-alice.rule"])
	assert.Equal(t, "5678", labels["traefik.http.services.engine-alice.loadbalancer.server.port"])
	assert.Equal(t, "websecure", labels["traefik.http.routers.engine-alice.entrypoints"])
	assert.Equal(t, "cloudflare", labels["traefik.http.routers.engine-alice.tls.certresolver"])
	assert.Equal(t, "engine", labels["app.type"])
	assert.Equal(t, "alice", labels["app.instance"])
	assert.Equal(t, "2026-01-02T03:04:05Z", labels["app.created_at"])
}

func TestBuildLabelsOmitsTLSWhenSSLDisabled(t *testing.T) {
	labels := instance.BuildLabels("alice", "example.com", time.Now(), false, "cloudflare")
	_, hasEntrypoints := labels["traefik.http.routers.engine-alice.entrypoints"]
	_, hasResolver := labels["traefik.http.routers.engine-alice.tls.certresolver"]
	assert.False(t, hasEntrypoints)
	assert.False(t, hasResolver)
}

func TestEnvDiffersDetectsDrift(t *testing.T) {
	env := instance.BuildEnv("alice", "example.com", "k", "UTC")
	assert.False(t, instance.EnvDiffers("alice", "example.com", "k", "UTC", env))

	drifted := make(map[string]string, len(env))
	for k, v := range env {
		drifted[k] = v
	}
	drifted["N8N_LOG_LEVEL"] = "debug"
	assert.True(t, instance.EnvDiffers("alice", "example.com", "k", "UTC", drifted))
}

func TestRebuildPreservesKeyAndCreatedAt(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var ran dockerrt.ContainerSpec
	removed := false

	rt := &dockerrt.MockRuntime{
		GetFunc: func(ctx context.Context, name string) (*dockerrt.Container, error) {
			return &dockerrt.Container{
				Name:   name,
				Status: "running",
				Labels: map[string]string{"app.created_at": createdAt.Format(time.RFC3339)},
				Env:    map[string]string{"N8N_ENCRYPTION_KEY": "preserved-key"},
			}, nil
		},
		RemoveFunc: func(ctx context.Context, name string, withVolume bool) error {
			removed = true
			assert.False(t, withVolume, "rebuild must preserve the data volume")
			return nil
		},
		RunFunc: func(ctx context.Context, spec dockerrt.ContainerSpec) (*dockerrt.Container, error) {
			ran = spec
			return &dockerrt.Container{Name: spec.Name, Status: "running"}, nil
		},
	}

	m := instance.NewManager(rt, testConfig(t), zap.NewNop())
	_, err := m.Rebuild(context.Background(), "alice", "1.200.0")
	require.NoError(t, err)

	assert.True(t, removed)
	assert.Equal(t, "preserved-key", ran.Env["N8N_ENCRYPTION_KEY"])
	assert.Equal(t, createdAt.Format(time.RFC3339), ran.Labels["app.created_at"])
}

func TestResetGeneratesFreshKey(t *testing.T) {
	var ran dockerrt.ContainerSpec
	rt := &dockerrt.MockRuntime{
		GetFunc: func(ctx context.Context, name string) (*dockerrt.Container, error) {
			return &dockerrt.Container{Name: name, Status: "running"}, nil
		},
		RunFunc: func(ctx context.Context, spec dockerrt.ContainerSpec) (*dockerrt.Container, error) {
			ran = spec
			return &dockerrt.Container{Name: spec.Name, Status: "running"}, nil
		},
	}
	m := instance.NewManager(rt, testConfig(t), zap.NewNop())
	_, err := m.Reset(context.Background(), "dave", "latest")
	require.NoError(t, err)
	assert.Len(t, ran.Env["N8N_ENCRYPTION_KEY"], 64)
}

func TestRemoveMissingContainerIsNotFound(t *testing.T) {
	rt := &dockerrt.MockRuntime{
		RemoveFunc: func(ctx context.Context, name string, withVolume bool) error {
			return &dockerrt.Error{Op: "remove", Name: name, Kind: dockerrt.KindNotFound, Err: assert.AnError}
		},
	}
	m := instance.NewManager(rt, testConfig(t), zap.NewNop())
	err := m.Remove(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCapacityEnforcesMinimumOfOne(t *testing.T) {
	rt := &dockerrt.MockRuntime{
		InfoFunc: func(ctx context.Context) (dockerrt.Info, error) {
			return dockerrt.Info{TotalRAMBytes: 1 << 20, CPUCount: 1}, nil
		},
		ListFunc: func(ctx context.Context, labels map[string]string) ([]dockerrt.Container, error) {
			return nil, nil
		},
	}
	m := instance.NewManager(rt, testConfig(t), zap.NewNop())
	snap, err := m.Capacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MaxInstances)
	assert.True(t, snap.CanCreate)
}

func TestCapacityCanCreateFalseWhenFull(t *testing.T) {
	rt := &dockerrt.MockRuntime{
		InfoFunc: func(ctx context.Context) (dockerrt.Info, error) {
			return dockerrt.Info{TotalRAMBytes: (768 + 384) * 1024 * 1024, CPUCount: 2}, nil
		},
		ListFunc: func(ctx context.Context, labels map[string]string) ([]dockerrt.Container, error) {
			return []dockerrt.Container{
				{Name: "engine-alice", Status: "running", Labels: map[string]string{"app.instance": "alice"}},
			}, nil
		},
	}
	m := instance.NewManager(rt, testConfig(t), zap.NewNop())
	snap, err := m.Capacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MaxInstances)
	assert.Equal(t, 1, snap.ActiveInstances)
	assert.False(t, snap.CanCreate)
}
