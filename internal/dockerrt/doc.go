// Package dockerrt wraps github.com/docker/docker/client with the
// narrow set of operations the provisioning pipeline needs: pull, run,
// get, list, stats, logs, remove, restart, and the network/volume
// helpers infra bootstrap uses. Nothing above this package talks to the
// docker client directly.
package dockerrt
