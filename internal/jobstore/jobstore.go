// Package jobstore bridges the worker and SSE followers through a
// small piece of shared state per job: a current status string and an
// append-only event log, both TTL'd so a forgotten job eventually
// disappears on its own.
package jobstore

import "context"

// State is a job's lifecycle status.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateError    State = "error"
	StateUnknown  State = "unknown"
)

// Event is one JSON object appended to a job's event log — the exact
// shape an SSE frame or a GET /job/{id}/events response line carries.
type Event map[string]interface{}

// Store is what the worker writes to and the HTTP surface reads from.
// Implementations must be safe for concurrent use.
type Store interface {
	// Init marks job_id pending.
	Init(ctx context.Context, jobID string) error
	// SetState updates job_id's current status.
	SetState(ctx context.Context, jobID string, state State) error
	// GetState returns job_id's current status, or StateUnknown if it
	// has expired or never existed.
	GetState(ctx context.Context, jobID string) (State, error)
	// Append adds ev to job_id's event log.
	Append(ctx context.Context, jobID string, ev Event) error
	// Since returns the events recorded at or after index.
	Since(ctx context.Context, jobID string, index int) ([]Event, error)
	// Shorten re-TTLs job_id's keys to a short cleanup window, called
	// once a job reaches a terminal state so completed jobs don't
	// linger for the full pending TTL.
	Shorten(ctx context.Context, jobID string) error
	// List returns the ids of the jobs currently pending or running, best-effort —
	// used by the admin job listing endpoint, not by the provisioning
	// pipeline itself.
	List(ctx context.Context) ([]string, error)
	// Ping verifies the store is reachable, the one health check GET
	// /health reports under "redis".
	Ping(ctx context.Context) error
}
