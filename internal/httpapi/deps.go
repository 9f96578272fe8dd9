package httpapi

import (
	"enginefleet/internal/activity"
	"enginefleet/internal/config"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/instance"
	"enginefleet/internal/jobstore"
	"enginefleet/internal/queue"

	"go.uber.org/zap"
)

// Deps is everything a handler needs. Most handlers work through
// Manager, Jobs, or Queue; Runtime is used directly only by the health,
// instance status and system info handlers.
type Deps struct {
	Cfg     *config.Config
	Manager *instance.Manager
	Jobs    jobstore.Store
	Queue   *queue.Queue
	Hub     *activity.Hub
	Runtime dockerrt.Runtime
	Logger  *zap.Logger

	// versions overrides the Docker Hub tag lookup in tests. Nil means
	// use the real registry client.
	versions versionsFetcher
}
