// Package retry runs a function until it succeeds, a fixed attempt
// count is exhausted, or the context is cancelled. Infra bootstrap's
// TCP reachability probe uses it; the worker's readiness poll and the
// queue's reconnect loop run their own loops.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Do calls fn up to attempts times, waiting interval between tries. It
// returns nil on the first success, or the last error if every attempt
// failed. A cancelled ctx stops retrying immediately and returns
// ctx.Err().
func Do(ctx context.Context, attempts int, interval time.Duration, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(fn, policy)
}

// DoNotify behaves like Do but logs each failed attempt through logger,
// so a service that is slow to come up shows in the logs before the
// attempt budget is exhausted. Infra bootstrap's TCP probe uses it.
func DoNotify(ctx context.Context, attempts int, interval time.Duration, logger *zap.Logger, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx,
	)
	return backoff.RetryNotify(fn, policy, func(err error, wait time.Duration) {
		logger.Warn("retrying after failure", zap.Error(err), zap.Duration("wait", wait))
	})
}
