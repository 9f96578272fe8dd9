// Package worker is the single consumer of the instance_creation queue:
// for each job it decodes the payload, creates the instance, polls for
// readiness through the public proxy, and reports exactly one terminal
// event before acking. It is the only writer of job events; every
// reader (SSE followers) only ever polls jobstore.Since.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"enginefleet/internal/activity"
	"enginefleet/internal/config"
	"enginefleet/internal/coordination"
	"enginefleet/internal/instance"
	"enginefleet/internal/jobstore"
	"enginefleet/internal/queue"
	"enginefleet/internal/utils"

	"go.uber.org/zap"
)

// Worker owns the consume loop and everything it touches: the job
// store, the instance manager, and (optionally) a leader gate so only
// one process in a multi-process deployment actually processes jobs.
type Worker struct {
	cfg     *config.Config
	jobs    jobstore.Store
	manager *instance.Manager
	hub     *activity.Hub
	leader  coordination.Leader
	logger  *zap.Logger
	probe   readinessChecker
}

// New builds a Worker. leader may be nil, in which case the worker
// always processes jobs (the single-process default).
func New(cfg *config.Config, jobs jobstore.Store, manager *instance.Manager, hub *activity.Hub, leader coordination.Leader, logger *zap.Logger) *Worker {
	if leader == nil {
		leader = coordination.Static{}
	}
	return &Worker{
		cfg:     cfg,
		jobs:    jobs,
		manager: manager,
		hub:     hub,
		leader:  leader,
		logger:  logger,
		probe:   newReadinessProbe(),
	}
}

// leaderPollInterval is how often Run checks leadership: both before
// starting a consume loop and while one is already in flight.
const leaderPollInterval = 2 * time.Second

// Run consumes jobs until ctx is cancelled, reconnecting to the broker
// on disconnect. It blocks; callers run it in its own goroutine. In a
// multi-process deployment it only actually consumes while this
// process holds leadership — a non-leader must not ack (and thereby
// drop) a message meant for whichever process does — so it never
// subscribes to the queue until leader.IsLeader() is true, and stops
// consuming (without acking anything in flight beyond what's already
// been handled) the moment leadership is lost.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !w.leader.IsLeader() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(leaderPollInterval):
			}
			continue
		}

		consumeCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- queue.Consume(consumeCtx, w.cfg.RabbitMQURL(), w.logger, w.handle) }()

		err := w.watchLeadership(ctx, done, cancel)
		if err != nil {
			return err
		}
	}
}

// watchLeadership blocks until either ctx is cancelled, the consume
// goroutine finishes on its own, or leadership is lost (in which case
// it cancels the consume context and returns nil so Run loops back to
// polling for leadership).
func (w *Worker) watchLeadership(ctx context.Context, done <-chan error, cancel context.CancelFunc) error {
	ticker := time.NewTicker(leaderPollInterval)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()
		case err := <-done:
			return err
		case <-ticker.C:
			if !w.leader.IsLeader() {
				cancel()
				<-done
				return nil
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, body []byte) (err error) {
	var p Payload

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic recovered", zap.Any("panic", r), zap.String("job_id", p.JobID))
			w.recoverFromPanic(ctx, p, r)
			err = fmt.Errorf("job %s: panic: %v: %w", p.JobID, r, queue.ErrUnhandled)
		}
	}()

	if jsonErr := json.Unmarshal(body, &p); jsonErr != nil {
		w.logger.Error("failed to decode job payload", zap.Error(jsonErr))
		return jsonErr
	}
	if p.Version == "" {
		p.Version = "latest"
	}

	w.logger.Info("processing job", zap.String("job_id", p.JobID), zap.String("name", p.Name), zap.String("version", p.Version))
	w.process(ctx, p)
	return nil
}

// recoverFromPanic reports the one terminal event a panicked job would
// otherwise never get and best-effort removes any container it may
// have started — both on a fresh context, since ctx itself may be the
// very thing whose misuse caused the panic.
func (w *Worker) recoverFromPanic(ctx context.Context, p Payload, r interface{}) {
	if p.JobID == "" {
		return
	}
	cleanupCtx := context.Background()
	w.fail(cleanupCtx, p.JobID, fmt.Sprintf("internal error: %v", r))
	if p.Name == "" {
		return
	}
	if err := w.manager.Remove(cleanupCtx, p.Name); err != nil {
		w.logger.Warn("panic cleanup: failed to remove container", zap.String("name", p.Name), zap.Error(err))
	}
}

func (w *Worker) process(ctx context.Context, p Payload) {
	_ = w.jobs.SetState(ctx, p.JobID, jobstore.StateRunning)
	w.appendInfo(ctx, p.JobID, "downloading image and creating container...")

	if exists, err := w.manager.Exists(ctx, p.Name); err != nil {
		w.fail(ctx, p.JobID, fmt.Sprintf("failed to check for existing instance: %v", err))
		return
	} else if exists {
		w.fail(ctx, p.JobID, fmt.Sprintf("instance '%s' already exists", p.Name))
		return
	}

	key, err := utils.GenerateEncryptionKey()
	if err != nil {
		w.fail(ctx, p.JobID, fmt.Sprintf("failed to generate encryption key: %v", err))
		return
	}

	c, err := w.manager.Create(ctx, p.Name, p.Version, key, time.Now())
	if err != nil {
		w.fail(ctx, p.JobID, fmt.Sprintf("failed to create container: %v", err))
		if c != nil {
			_ = w.manager.Remove(ctx, p.Name)
		}
		return
	}
	w.appendInfo(ctx, p.JobID, "container created, waiting for engine to come up...")

	if !w.awaitReadiness(ctx, p) {
		return
	}

	w.appendInfo(ctx, p.JobID, "configuring TLS...")
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(w.cfg.SSLWaitSeconds) * time.Second):
	}

	w.complete(ctx, p)
}

// awaitReadiness polls the container and the public URL until the
// instance is reachable or attempts are exhausted. It returns false if
// it already appended a terminal error event.
func (w *Worker) awaitReadiness(ctx context.Context, p Payload) bool {
	for attempt := 0; attempt < w.cfg.ReadinessMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.cfg.ReadinessPollInterval):
		}

		c, err := w.manager.Get(ctx, p.Name)
		if err != nil {
			continue
		}
		if c.Status == "exited" {
			logs, _ := w.manager.Logs(ctx, p.Name, 30)
			w.fail(ctx, p.JobID, fmt.Sprintf("container stopped.\n%s", logs))
			return false
		}
		if c.Status != "running" {
			continue
		}

		url := instance.URL(p.Name, w.cfg.BaseDomain, instance.Scheme(w.cfg.SSLEnabled))
		if w.probe.ready(ctx, url) {
			w.appendInfo(ctx, p.JobID, "engine is reachable")
			return true
		}

		if attempt%10 == 0 {
			w.appendInfo(ctx, p.JobID, fmt.Sprintf("waiting for engine (%ds)...", attempt*int(w.cfg.ReadinessPollInterval.Seconds())))
		}
	}

	w.fail(ctx, p.JobID, fmt.Sprintf("timeout: engine did not become reachable within %ds",
		w.cfg.ReadinessMaxAttempts*int(w.cfg.ReadinessPollInterval.Seconds())))
	return false
}

func (w *Worker) complete(ctx context.Context, p Payload) {
	ev := jobstore.Event{
		"status":           "complete",
		"message":          "instance created successfully",
		"instance_id":      p.Name,
		"url":              instance.URL(p.Name, w.cfg.BaseDomain, instance.Scheme(w.cfg.SSLEnabled)),
		"location":         p.Location,
		"container_status": "running",
	}
	_ = w.jobs.Append(ctx, p.JobID, ev)
	_ = w.jobs.SetState(ctx, p.JobID, jobstore.StateComplete)
	w.publish(ctx, activity.LevelInfo, fmt.Sprintf("instance %q created", p.Name))
	w.logger.Info("job completed", zap.String("job_id", p.JobID), zap.String("name", p.Name))
}

func (w *Worker) fail(ctx context.Context, jobID, message string) {
	_ = w.jobs.Append(ctx, jobID, jobstore.Event{"status": "error", "message": message})
	_ = w.jobs.SetState(ctx, jobID, jobstore.StateError)
	w.publish(ctx, activity.LevelError, message)
	w.logger.Warn("job failed", zap.String("job_id", jobID), zap.String("message", message))
}

func (w *Worker) appendInfo(ctx context.Context, jobID, message string) {
	_ = w.jobs.Append(ctx, jobID, jobstore.Event{"status": "info", "message": message})
}

func (w *Worker) publish(ctx context.Context, level activity.Level, msg string) {
	if w.hub == nil {
		return
	}
	_ = w.hub.Publish(ctx, activity.Event{Component: "worker", Level: level, Message: msg, At: time.Now()})
}
