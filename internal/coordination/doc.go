// Package coordination gates which process runs the worker and sweeper
// when more than one server process is deployed in front of the same
// queue and Redis instance. It is optional: with no etcd endpoints
// configured there is exactly one process, so Leader always reports
// itself as leading and the rest of this package is inert.
package coordination
