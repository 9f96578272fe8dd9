// Package sweeper periodically evicts instances older than a
// configured threshold. It never blocks startup and never propagates
// an error — a failed sweep just gets logged and retried on the next
// tick.
package sweeper

import (
	"context"
	"time"

	"enginefleet/internal/config"
	"enginefleet/internal/coordination"
	"enginefleet/internal/instance"

	"go.uber.org/zap"
)

// initialDelay is how long the first sweep waits before running, so a
// fresh deployment's startup isn't held up by it.
const initialDelay = 60 * time.Second

// Sweeper owns the eviction loop.
type Sweeper struct {
	cfg     *config.Config
	manager *instance.Manager
	leader  coordination.Leader
	logger  *zap.Logger
}

// New builds a Sweeper. leader may be nil, in which case it always
// sweeps (the single-process default).
func New(cfg *config.Config, manager *instance.Manager, leader coordination.Leader, logger *zap.Logger) *Sweeper {
	if leader == nil {
		leader = coordination.Static{}
	}
	return &Sweeper{cfg: cfg, manager: manager, leader: leader, logger: logger}
}

// Run loops until ctx is cancelled, sweeping every
// CleanupIntervalSeconds after an initial 60s delay. It must observe
// cancellation within one wait interval.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.wait(ctx, initialDelay) {
		return
	}

	interval := time.Duration(s.cfg.CleanupIntervalSeconds) * time.Second
	for {
		if s.leader.IsLeader() {
			s.Sweep(ctx)
		}
		if !s.wait(ctx, interval) {
			return
		}
	}
}

func (s *Sweeper) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Sweep removes every instance at or beyond CleanupMaxAgeDays. Errors
// removing an individual instance are logged, never fatal — the next
// tick will try again.
func (s *Sweeper) Sweep(ctx context.Context) {
	views, err := s.manager.List(ctx)
	if err != nil {
		s.logger.Warn("sweep: failed to list instances", zap.Error(err))
		return
	}

	removed := 0
	for _, v := range views {
		if v.AgeDays == nil || *v.AgeDays < s.cfg.CleanupMaxAgeDays {
			continue
		}
		if err := s.manager.Remove(ctx, v.Name); err != nil {
			s.logger.Error("sweep: failed to remove expired instance", zap.String("name", v.Name), zap.Error(err))
			continue
		}
		removed++
		s.logger.Info("sweep: removed expired instance", zap.String("name", v.Name), zap.Intp("age_days", v.AgeDays))
	}

	if removed > 0 {
		s.logger.Info("sweep: completed", zap.Int("removed", removed), zap.Int("active", len(views)))
	} else {
		s.logger.Info("sweep: no expired instances", zap.Int("active", len(views)))
	}
}
