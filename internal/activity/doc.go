// Package activity fans operational log lines out to admin observers.
//
// Infra bootstrap, the worker, and the sweeper each publish an Event as
// they do their work. The Hub bridges those publishes to every caller
// currently following GET /admin/activity over a WebSocket. It carries
// no workflow-engine data and nothing tenant-specific — only what this
// service did and when, the same way a request logger would, just fanned
// out live instead of written to one process's log file.
//
// The transport underneath the Hub is a Bus: RedisPubSub when multiple
// server processes need to see each other's events, MemoryPubSub when
// there is exactly one process or a test would rather not dial Redis.
package activity
