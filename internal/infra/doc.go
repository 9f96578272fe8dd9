// Package infra provisions the handful of shared containers this
// service depends on: the Docker network, the reverse proxy, Redis,
// the broker, a static fallback page for unclaimed subdomains, and a
// pre-pulled engine image. Bootstrap is re-entrant — every step
// detects and reuses what's already there before falling back to
// recreating it — and no single step's failure blocks the HTTP surface
// from coming up.
package infra
