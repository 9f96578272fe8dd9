package activity

import "time"

// Level mirrors the handful of severities a log line can carry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one line on the operational activity feed: infra bootstrap
// steps, job lifecycle transitions, sweeper runs. It carries no
// workflow-engine data, only what this service did and when.
type Event struct {
	Component string    `json:"component"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// channel is the single fixed pub/sub topic the Hub publishes to and
// subscribes from. There is exactly one activity feed, not a
// per-entity hierarchy, so unlike a multi-tenant topic scheme there is
// nothing to parameterize.
const channel = "activity"
