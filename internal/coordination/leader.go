package coordination

import (
	"context"
	"sync/atomic"

	"enginefleet/internal/etcd"
	"enginefleet/internal/logging"

	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/zap"
)

// electionPrefix is the etcd key prefix campaigned on. There is only
// ever one thing to elect a leader for here: who runs the worker and
// sweeper.
const electionPrefix = "/enginefleet/leader"

// sessionTTLSeconds bounds how long a leader can vanish (crash, network
// partition) before another process takes over.
const sessionTTLSeconds = 15

// Leader reports whether this process currently holds the lock that
// gates running the worker and sweeper.
type Leader interface {
	// IsLeader reports current leadership status. Safe for concurrent use.
	IsLeader() bool
	// Close releases the session, resigning leadership if held.
	Close() error
}

// Static always reports itself as leader: the single-instance default
// when no coordination endpoint is configured.
type Static struct{}

func (Static) IsLeader() bool { return true }
func (Static) Close() error   { return nil }

// Elected campaigns for leadership over an etcd session and tracks
// whether the campaign has been won. A failed Campaign call is retried
// in the background while ctx is alive. When its etcd session closes
// (crash, partition) it reports not-leader and stops campaigning for
// good, so another process's campaign takes over the leadership.
type Elected struct {
	client  *etcd.Client
	session *concurrency.Session
	leading atomic.Bool
	cancel  context.CancelFunc
}

// NewElected starts campaigning for leadership using client. instanceID
// identifies this process's campaign value, useful for debugging who
// currently holds the lock.
func NewElected(ctx context.Context, client *etcd.Client, instanceID string) (*Elected, error) {
	session, err := client.NewSession(ctx, sessionTTLSeconds)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e := &Elected{client: client, session: session, cancel: cancel}

	go e.campaignLoop(runCtx, instanceID)

	return e, nil
}

func (e *Elected) campaignLoop(ctx context.Context, instanceID string) {
	logger := logging.FromContext(logging.WithComponent(ctx, "coordination"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.session.Done():
			logger.Warn("etcd session closed, leadership lost")
			e.leading.Store(false)
			return
		default:
		}

		election := e.client.NewElection(e.session, electionPrefix)
		if err := election.Campaign(ctx, instanceID); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("leader campaign failed, retrying", zap.Error(err))
			continue
		}

		logger.Info("won leader election")
		e.leading.Store(true)

		select {
		case <-ctx.Done():
			_ = election.Resign(context.Background())
			e.leading.Store(false)
			return
		case <-e.session.Done():
			logger.Warn("etcd session closed, leadership lost")
			e.leading.Store(false)
			return
		}
	}
}

// IsLeader reports whether this process currently holds the election.
func (e *Elected) IsLeader() bool {
	return e.leading.Load()
}

// Close stops campaigning and closes the underlying session.
func (e *Elected) Close() error {
	e.cancel()
	return e.session.Close()
}
