// Package app wires every component into one running process: it is
// the only place that knows about all of config, dockerrt, jobstore,
// queue, instance, worker, sweeper, httpapi, activity, coordination and
// infra at once. Everything else only knows the seams it needs.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"enginefleet/internal/activity"
	"enginefleet/internal/config"
	"enginefleet/internal/coordination"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/etcd"
	"enginefleet/internal/httpapi"
	"enginefleet/internal/infra"
	"enginefleet/internal/instance"
	"enginefleet/internal/jobstore"
	"enginefleet/internal/logging"
	"enginefleet/internal/queue"
	"enginefleet/internal/sweeper"
	"enginefleet/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Orchestrator holds every long-lived component of one server process.
type Orchestrator struct {
	cfg    *config.Config
	logger *zap.Logger

	runtime dockerrt.Runtime
	manager *instance.Manager
	jobs    jobstore.Store
	jobsRaw *redis.Client
	q       *queue.Queue
	hub     *activity.Hub
	leader  coordination.Leader
	etcdCli *etcd.Client

	httpServer *http.Server
}

// New builds every component. When EtcdEndpoints is set it also dials
// etcd and starts the leader-election campaign; infra bootstrap, the
// worker and sweeper loops, and the HTTP server all start in Run.
func New(cfg *config.Config) (*Orchestrator, error) {
	logger := logging.New(cfg.Env)

	rt, err := dockerrt.NewClient(dockerrt.Config{})
	if err != nil {
		return nil, fmt.Errorf("dockerrt: %w", err)
	}

	manager := instance.NewManager(rt, cfg, logger)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	jobs := jobstore.NewRedisStore(redisClient, cfg.JobTTL, cfg.JobCleanupTTL)

	q := queue.NewQueue(cfg.RabbitMQURL(), logger)

	hub := activity.NewHub(activity.NewRedisPubSub(redisClient))

	leader, etcdCli, err := buildLeader(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("coordination: %w", err)
	}

	return &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		runtime: rt,
		manager: manager,
		jobs:    jobs,
		jobsRaw: redisClient,
		q:       q,
		hub:     hub,
		leader:  leader,
		etcdCli: etcdCli,
	}, nil
}

// buildLeader campaigns on etcd when EtcdEndpoints is configured, and
// otherwise falls back to Static, the single-process default.
func buildLeader(cfg *config.Config, logger *zap.Logger) (coordination.Leader, *etcd.Client, error) {
	if len(cfg.EtcdEndpoints) == 0 {
		return coordination.Static{}, nil, nil
	}

	cli, err := etcd.NewClient(etcd.Config{Endpoints: cfg.EtcdEndpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		return nil, nil, err
	}

	instanceID := uuid.NewString()
	elected, err := coordination.NewElected(context.Background(), cli, instanceID)
	if err != nil {
		_ = cli.Close()
		return nil, nil, err
	}
	logger.Info("distributed coordination enabled", zap.Strings("etcd_endpoints", cfg.EtcdEndpoints), zap.String("instance_id", instanceID))
	return elected, cli, nil
}

// Run bootstraps shared infra, starts the worker and sweeper loops, and
// serves HTTP until ctx is cancelled. It returns once the HTTP server
// has shut down.
func (a *Orchestrator) Run(ctx context.Context) error {
	bootstrapCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := infra.NewBootstrapper(a.runtime, a.cfg, a.hub, a.logger).Run(bootstrapCtx); err != nil {
		a.logger.Warn("bootstrap completed with errors", zap.Error(err))
	}

	w := worker.New(a.cfg, a.jobs, a.manager, a.hub, a.leader, a.logger)
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("worker stopped unexpectedly", zap.Error(err))
		}
	}()

	sw := sweeper.New(a.cfg, a.manager, a.leader, a.logger)
	go sw.Run(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Cfg:     a.cfg,
		Manager: a.manager,
		Jobs:    a.jobs,
		Queue:   a.q,
		Hub:     a.hub,
		Runtime: a.runtime,
		Logger:  a.logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.Int("port", a.cfg.ServerPort))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("http server failed", zap.Error(err))
		}
	}

	return a.shutdown()
}

// shutdown drains in-flight requests and releases every held resource,
// ending with the runtime client.
// Errors are logged, not returned, since shutdown happens on the way
// out regardless of which step fails.
func (a *Orchestrator) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown error", zap.Error(err))
		}
	}
	if err := a.q.Close(); err != nil {
		a.logger.Warn("queue close error", zap.Error(err))
	}
	if err := a.hub.Close(); err != nil {
		a.logger.Warn("activity hub close error", zap.Error(err))
	}
	if err := a.leader.Close(); err != nil {
		a.logger.Warn("leader close error", zap.Error(err))
	}
	if a.etcdCli != nil {
		if err := a.etcdCli.Close(); err != nil {
			a.logger.Warn("etcd client close error", zap.Error(err))
		}
	}
	if err := a.jobsRaw.Close(); err != nil {
		a.logger.Warn("redis client close error", zap.Error(err))
	}
	if err := a.runtime.Close(); err != nil {
		a.logger.Warn("runtime client close error", zap.Error(err))
	}
	_ = a.logger.Sync()

	a.logger.Info("shutdown complete")
	return nil
}
