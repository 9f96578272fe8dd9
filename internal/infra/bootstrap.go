package infra

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"enginefleet/internal/activity"
	"enginefleet/internal/config"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/retry"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Bootstrapper provisions every shared dependency the provisioning
// pipeline needs before it can accept jobs.
type Bootstrapper struct {
	rt     dockerrt.Runtime
	cfg    *config.Config
	hub    *activity.Hub
	logger *zap.Logger
}

// NewBootstrapper builds a Bootstrapper.
func NewBootstrapper(rt dockerrt.Runtime, cfg *config.Config, hub *activity.Hub, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{rt: rt, cfg: cfg, hub: hub, logger: logger}
}

type step struct {
	label string
	fn    func(ctx context.Context) error
}

// Run executes every bootstrap step in order. A step's failure is
// logged, published to the activity feed, and swallowed — it never
// stops the remaining steps or prevents the HTTP surface from starting.
// The returned error aggregates every step's failure (possibly nil)
// purely for the caller's own logging; it is never fatal.
func (b *Bootstrapper) Run(ctx context.Context) error {
	steps := []step{
		{"network", b.ensureNetwork},
		{"proxy", b.ensureProxy},
		{"kv", b.ensureKV},
		{"broker", b.ensureBroker},
		{"fallback", b.ensureFallback},
		{"image-pull", b.prePullImage},
	}

	var errs *multierror.Error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			b.logger.Error("bootstrap step failed, continuing", zap.String("step", s.label), zap.Error(err))
			b.publish(ctx, activity.LevelError, fmt.Sprintf("bootstrap step %q failed: %v", s.label, err))
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", s.label, err))
			continue
		}
		b.publish(ctx, activity.LevelInfo, fmt.Sprintf("bootstrap step %q ok", s.label))
	}

	if errs != nil {
		return errs.ErrorOrNil()
	}
	return nil
}

func (b *Bootstrapper) publish(ctx context.Context, level activity.Level, msg string) {
	if b.hub == nil {
		return
	}
	_ = b.hub.Publish(ctx, activity.Event{Component: "infra", Level: level, Message: msg, At: time.Now()})
}

func (b *Bootstrapper) ensureNetwork(ctx context.Context) error {
	return b.rt.NetworkGetOrCreate(ctx, b.cfg.DockerNetwork)
}

func (b *Bootstrapper) ensureProxy(ctx context.Context) error {
	const name = "traefik"

	containers, err := b.rt.List(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range containers {
		if c.Status != "running" {
			continue
		}
		if strings.Contains(strings.ToLower(c.Image), "traefik") || strings.Contains(strings.ToLower(c.Name), "traefik") {
			b.logger.Info("found existing proxy container", zap.String("name", c.Name))
			return nil
		}
	}

	if existing, err := b.rt.Get(ctx, name); err == nil && existing.Status != "running" {
		_ = b.rt.Remove(ctx, name, false)
	}

	if err := b.rt.Pull(ctx, "traefik", "v3.1"); err != nil {
		return err
	}

	labels := map[string]string{
		"app.type":    "proxy",
		"app.managed": "true",
	}
	_, err = b.rt.Run(ctx, dockerrt.ContainerSpec{
		Name:   name,
		Image:  "traefik:v3.1",
		Labels: labels,
		Network: b.cfg.DockerNetwork,
		PublishPorts: map[string]string{
			"80/tcp":  "80",
			"443/tcp": "443",
		},
		RestartPolicy: "unless-stopped",
	})
	return err
}

func (b *Bootstrapper) ensureKV(ctx context.Context) error {
	const name = "redis"
	_, err := b.ensureSimpleService(ctx, name, "redis:7-alpine", nil, map[string]string{"6379/tcp": "6379"}, 128*1024*1024)
	return err
}

func (b *Bootstrapper) ensureBroker(ctx context.Context) error {
	const name = "rabbitmq"
	env := map[string]string{
		"RABBITMQ_DEFAULT_USER": b.cfg.RabbitMQUser,
		"RABBITMQ_DEFAULT_PASS": b.cfg.RabbitMQPassword,
	}
	ports := map[string]string{
		"5672/tcp":  fmt.Sprintf("%d", b.cfg.RabbitMQPort),
		"15672/tcp": "15672",
	}
	created, err := b.ensureSimpleService(ctx, name, "rabbitmq:3-management-alpine", env, ports, 256*1024*1024)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	return b.probeTCP(ctx, "127.0.0.1", b.cfg.RabbitMQPort, 15, 2*time.Second)
}

// ensureSimpleService is the detect-or-recreate pattern every plain
// sidecar (Redis, RabbitMQ) follows: reuse a running container,
// otherwise remove any stopped one and recreate it from a known-good
// spec. It reports whether it actually created a fresh
// container, since only a freshly created one needs re-verification.
func (b *Bootstrapper) ensureSimpleService(ctx context.Context, name, image string, env, ports map[string]string, memLimit int64) (bool, error) {
	existing, err := b.rt.Get(ctx, name)
	if err == nil {
		if existing.Status == "running" {
			return false, nil
		}
		_ = b.rt.Remove(ctx, name, false)
	} else if !dockerrt.IsNotFound(err) {
		return false, err
	}

	if err := b.rt.Pull(ctx, image, ""); err != nil {
		return false, err
	}

	_, err = b.rt.Run(ctx, dockerrt.ContainerSpec{
		Name:                name,
		Image:               image,
		Env:                 env,
		Network:             b.cfg.DockerNetwork,
		PublishPorts:        ports,
		RestartPolicy:       "unless-stopped",
		MemLimitBytes:       memLimit,
		MemReservationBytes: memLimit / 2,
	})
	return err == nil, err
}

func (b *Bootstrapper) ensureFallback(ctx context.Context) error {
	const name = "fallback"

	existing, err := b.rt.Get(ctx, name)
	if err == nil && existing.Status == "running" {
		return nil
	}
	if err == nil {
		_ = b.rt.Remove(ctx, name, false)
	} else if !dockerrt.IsNotFound(err) {
		return err
	}

	if err := b.rt.Pull(ctx, "nginx", "alpine"); err != nil {
		return err
	}

	escapedDomain := strings.ReplaceAll(b.cfg.BaseDomain, ".", "\\.")
	labels := map[string]string{
		"traefik.enable": "true",
		fmt.Sprintf("traefik.http.routers.%s.rule", name):              fmt.Sprintf("HostRegexp(`[a-z0-9-]+\\.%s`)", escapedDomain),
		fmt.Sprintf("traefik.http.routers.%s.entrypoints", name):       "websecure",
		fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", name):  b.cfg.TraefikCertResolver,
		fmt.Sprintf("traefik.http.routers.%s.priority", name):          "1",
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", name): "80",
		"app.type":    "fallback",
		"app.managed": "true",
	}

	_, err = b.rt.Run(ctx, dockerrt.ContainerSpec{
		Name:                name,
		Image:               "nginx:alpine",
		Labels:              labels,
		Network:             b.cfg.DockerNetwork,
		RestartPolicy:       "unless-stopped",
		MemLimitBytes:       32 * 1024 * 1024,
		CPUShares:           128,
	})
	return err
}

func (b *Bootstrapper) prePullImage(ctx context.Context) error {
	return b.rt.Pull(ctx, "n8nio/n8n", b.cfg.DefaultEngineVersion)
}

// probeTCP retries a TCP dial up to attempts times, the best-effort
// reachability check ensureBroker runs to confirm a freshly created
// broker actually came up. It never fails the
// bootstrap step: exhausting attempts only logs a warning.
func (b *Bootstrapper) probeTCP(ctx context.Context, host string, port int, attempts int, wait time.Duration) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	err := retry.DoNotify(ctx, attempts, wait, b.logger, func() error {
		conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		b.logger.Warn("service started but connection not confirmed", zap.String("addr", addr), zap.Error(err))
	}
	return nil
}
