// Package instance is the source of truth for what a tenant's engine
// container should look like: its name-derived identifiers, its
// environment projection, its reverse-proxy labels, and the lifecycle
// operations (create, remove, rebuild, reset, restart, list, reconcile,
// capacity) built on top of internal/dockerrt. It holds no state of its
// own — every query goes through the runtime client, which is the only
// source of truth for what instances currently exist.
package instance
