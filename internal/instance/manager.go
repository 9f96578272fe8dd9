package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enginefleet/internal/apperr"
	"enginefleet/internal/config"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/utils"

	"go.uber.org/zap"
)

const (
	enginePortNumber = "5678"
	reservedRAMMB    = 768
	perInstanceRAMMB = 384
)

// Manager owns naming, env/label projection, and every lifecycle
// operation on a tenant's engine container. It holds no registry of
// its own; every operation queries the runtime client, which is the
// single source of truth for what instances exist.
type Manager struct {
	rt     dockerrt.Runtime
	cfg    *config.Config
	logger *zap.Logger
}

// NewManager builds a Manager.
func NewManager(rt dockerrt.Runtime, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{rt: rt, cfg: cfg, logger: logger}
}

func (m *Manager) scheme() string {
	return Scheme(m.cfg.SSLEnabled)
}

// Scheme is "https" unless sslEnabled is false, the one place the
// public URL's protocol is decided.
func Scheme(sslEnabled bool) string {
	if sslEnabled {
		return "https"
	}
	return "http"
}

func (m *Manager) image(version string) string {
	return fmt.Sprintf("n8nio/n8n:%s", version)
}

// Create pulls the image and runs a new container for name at version,
// with the given encryption key and creation timestamp. createdAt is
// stamped into the management label and carried verbatim through
// rebuilds.
func (m *Manager) Create(ctx context.Context, name, version, encryptionKey string, createdAt time.Time) (*dockerrt.Container, error) {
	if err := m.rt.Pull(ctx, "n8nio/n8n", version); err != nil {
		return nil, apperr.New("instance.create", apperr.KindRuntimeTransient, err)
	}

	env := BuildEnv(name, m.cfg.BaseDomain, encryptionKey, m.cfg.DefaultTimezone)
	labels := BuildLabels(name, m.cfg.BaseDomain, createdAt, m.cfg.SSLEnabled, m.cfg.TraefikCertResolver)

	c, err := m.rt.Run(ctx, dockerrt.ContainerSpec{
		Name:                ContainerName(name),
		Image:               m.image(version),
		Env:                 env,
		Labels:              labels,
		Network:             m.cfg.DockerNetwork,
		VolumeName:          VolumeName(name),
		VolumeTarget:        "/home/node/.n8n",
		MemLimitBytes:       m.cfg.InstanceMemLimit,
		MemReservationBytes: m.cfg.InstanceMemReservation,
		CPUShares:           m.cfg.InstanceCPUShares,
		RestartPolicy:       "unless-stopped",
	})
	if err != nil {
		return nil, apperr.New("instance.create", apperr.KindRuntimeTransient, err)
	}
	return c, nil
}

// Remove force-removes the container and its data volume. A missing
// container is reported as NotFound; a volume that cannot be removed
// (it may never have been created) is ignored and not reported.
func (m *Manager) Remove(ctx context.Context, name string) error {
	cname := ContainerName(name)
	if err := m.rt.Remove(ctx, cname, true); err != nil {
		if dockerrt.IsNotFound(err) {
			return apperr.NotFound("instance.remove", err)
		}
		return apperr.New("instance.remove", apperr.KindRuntimeTransient, err)
	}
	return nil
}

// Get looks up the container for name.
func (m *Manager) Get(ctx context.Context, name string) (*dockerrt.Container, error) {
	c, err := m.rt.Get(ctx, ContainerName(name))
	if err != nil {
		if dockerrt.IsNotFound(err) {
			return nil, apperr.NotFound("instance.get", err)
		}
		return nil, apperr.New("instance.get", apperr.KindRuntimeTransient, err)
	}
	return c, nil
}

// Logs returns up to tail lines of combined stdout/stderr for the
// instance's container.
func (m *Manager) Logs(ctx context.Context, name string, tail int) (string, error) {
	logs, err := m.rt.Logs(ctx, ContainerName(name), tail)
	if err != nil {
		return "", apperr.New("instance.logs", apperr.KindRuntimeTransient, err)
	}
	return logs, nil
}

// Exists reports whether an instance by this name already has a
// container, the duplicate guard both intake and the worker apply.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.rt.Get(ctx, ContainerName(name))
	if err == nil {
		return true, nil
	}
	if dockerrt.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ExtractKey reads the encryption key a running container was created
// with out of its live environment.
func ExtractKey(c *dockerrt.Container) (string, error) {
	key := c.Env["N8N_ENCRYPTION_KEY"]
	if key == "" {
		return "", errors.New("container has no N8N_ENCRYPTION_KEY set")
	}
	return key, nil
}

// ExtractCreatedAt reads the app.created_at management label,
// falling back to the runtime's own creation timestamp if the label
// is absent or unparsable.
func ExtractCreatedAt(c *dockerrt.Container) time.Time {
	if raw, ok := c.Labels["app.created_at"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return c.CreatedAt
}

// Rebuild extracts the existing encryption key and created_at label
// from the current container (failing if the key is absent),
// force-removes the container (the data volume is preserved), and
// recreates it at version with the preserved key and timestamp.
func (m *Manager) Rebuild(ctx context.Context, name, version string) (*dockerrt.Container, error) {
	existing, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	key, err := ExtractKey(existing)
	if err != nil {
		return nil, apperr.New("instance.rebuild", apperr.KindRuntimeTransient, err)
	}
	createdAt := ExtractCreatedAt(existing)

	if err := m.rt.Remove(ctx, ContainerName(name), false); err != nil && !dockerrt.IsNotFound(err) {
		return nil, apperr.New("instance.rebuild", apperr.KindRuntimeTransient, err)
	}
	return m.Create(ctx, name, version, key, createdAt)
}

// Reset removes the instance entirely (destroying its data) and
// recreates it at version with a fresh encryption key.
func (m *Manager) Reset(ctx context.Context, name, version string) (*dockerrt.Container, error) {
	if err := m.Remove(ctx, name); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	key, err := utils.GenerateEncryptionKey()
	if err != nil {
		return nil, apperr.New("instance.reset", apperr.KindRuntimeTransient, err)
	}
	return m.Create(ctx, name, version, key, time.Now())
}

// Restart restarts the instance's container, waiting up to timeout
// for a graceful stop.
func (m *Manager) Restart(ctx context.Context, name string, timeout time.Duration) error {
	if err := m.rt.Restart(ctx, ContainerName(name), timeout); err != nil {
		if dockerrt.IsNotFound(err) {
			return apperr.NotFound("instance.restart", err)
		}
		return apperr.New("instance.restart", apperr.KindRuntimeTransient, err)
	}
	return nil
}

// List enumerates every managed instance, computing age_days from the
// app.created_at label (falling back to the runtime's own creation
// timestamp).
func (m *Manager) List(ctx context.Context) ([]View, error) {
	containers, err := m.rt.List(ctx, map[string]string{"app.type": "engine"})
	if err != nil {
		return nil, apperr.New("instance.list", apperr.KindRuntimeTransient, err)
	}

	now := time.Now().UTC()
	views := make([]View, 0, len(containers))
	for _, c := range containers {
		name := c.Labels["app.instance"]
		createdAt := ExtractCreatedAt(&c)
		ageDays := int(now.Sub(createdAt).Hours() / 24)

		views = append(views, View{
			InstanceID:  name,
			Name:        name,
			Status:      c.Status,
			URL:         URL(name, m.cfg.BaseDomain, m.scheme()),
			Location:    "default",
			Version:     versionFromImage(c.Image),
			ContainerID: shortID(c.ID),
			CreatedAt:   createdAt.Format(time.RFC3339),
			AgeDays:     &ageDays,
		})
	}
	return views, nil
}

// ReconcileAll compares every running instance's live environment to
// BuildEnv and rebuilds any that have drifted from the current
// projection, preserving their key and data. It never stops on a
// single instance's failure; it logs and continues.
func (m *Manager) ReconcileAll(ctx context.Context) {
	containers, err := m.rt.List(ctx, map[string]string{"app.type": "engine"})
	if err != nil {
		m.logger.Warn("reconcile: failed to list instances", zap.Error(err))
		return
	}

	for _, summary := range containers {
		if summary.Status != "running" {
			continue
		}
		name := summary.Labels["app.instance"]

		// List summaries don't carry env; a full inspect is needed to
		// read the container's live environment.
		c, err := m.rt.Get(ctx, summary.Name)
		if err != nil {
			m.logger.Warn("reconcile: failed to inspect instance", zap.String("name", name), zap.Error(err))
			continue
		}

		key, err := ExtractKey(c)
		if err != nil {
			m.logger.Warn("reconcile: skipping instance without a key", zap.String("name", name))
			continue
		}
		if !EnvDiffers(name, m.cfg.BaseDomain, key, m.cfg.DefaultTimezone, c.Env) {
			continue
		}

		m.logger.Info("reconcile: env drift detected, rebuilding", zap.String("name", name))
		if _, err := m.Rebuild(ctx, name, versionFromImage(c.Image)); err != nil {
			m.logger.Warn("reconcile: rebuild failed", zap.String("name", name), zap.Error(err))
		}
	}
}

// Capacity computes the admission-control snapshot from the runtime's
// host info and the current instance list.
func (m *Manager) Capacity(ctx context.Context) (Capacity, error) {
	info, err := m.rt.Info(ctx)
	if err != nil {
		return Capacity{}, apperr.New("instance.capacity", apperr.KindRuntimeTransient, err)
	}
	views, err := m.List(ctx)
	if err != nil {
		return Capacity{}, err
	}

	totalRAMMB := int64(info.TotalRAMBytes / (1024 * 1024))
	available := totalRAMMB - reservedRAMMB
	maxInstances := int(available / perInstanceRAMMB)
	if maxInstances < 1 {
		maxInstances = 1
	}

	active := 0
	for _, v := range views {
		if v.Status == "running" {
			active++
		}
	}

	return Capacity{
		MaxInstances:    maxInstances,
		ActiveInstances: active,
		CanCreate:       active < maxInstances,
		Instances:       views,
		VPS: VPSInfo{
			TotalRAMMB:       totalRAMMB,
			TotalCPUs:        info.CPUCount,
			ReservedRAMMB:    reservedRAMMB,
			PerInstanceRAMMB: perInstanceRAMMB,
		},
	}, nil
}

func versionFromImage(image string) string {
	if idx := lastColon(image); idx >= 0 {
		return image[idx+1:]
	}
	return "unknown"
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
