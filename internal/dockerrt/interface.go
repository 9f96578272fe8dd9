package dockerrt

import (
	"context"
	"time"
)

// Runtime is the set of container-runtime operations the rest of the
// system needs. Implementations must be safe for concurrent use.
type Runtime interface {
	// Pull downloads image:tag, blocking until the pull completes.
	Pull(ctx context.Context, image, tag string) error

	// Run creates and starts a container from spec.
	Run(ctx context.Context, spec ContainerSpec) (*Container, error)

	// Get looks up a container by name. Returns a KindNotFound Error if
	// it does not exist.
	Get(ctx context.Context, name string) (*Container, error)

	// List returns containers matching every key=value pair in labels.
	List(ctx context.Context, labels map[string]string) ([]Container, error)

	// StatsOnce takes a single non-streaming resource sample.
	StatsOnce(ctx context.Context, name string) (Stats, error)

	// Logs returns up to tail lines of combined stdout/stderr.
	Logs(ctx context.Context, name string, tail int) (string, error)

	// Remove force-removes a container. If withVolume is true and the
	// container declares a named volume, the volume is removed too
	// (best-effort; a missing volume is not an error).
	Remove(ctx context.Context, name string, withVolume bool) error

	// Restart restarts a container, waiting up to timeout for the old
	// process to stop gracefully.
	Restart(ctx context.Context, name string, timeout time.Duration) error

	// VolumeRemove force-removes a named volume.
	VolumeRemove(ctx context.Context, name string) error

	// NetworkGetOrCreate ensures a bridge network named `name` exists.
	NetworkGetOrCreate(ctx context.Context, name string) error

	// Info reports host-level capacity figures.
	Info(ctx context.Context) (Info, error)

	// ContainersBindingPort returns containers that publish hostPort on
	// the host, used by infra bootstrap to find port squatters.
	ContainersBindingPort(ctx context.Context, hostPort int) ([]Container, error)

	// HealthCheck verifies the daemon is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the underlying client connection.
	Close() error
}

// MockRuntime is a function-field based fake for unit tests that don't
// need a real daemon.
type MockRuntime struct {
	PullFunc                   func(ctx context.Context, image, tag string) error
	RunFunc                    func(ctx context.Context, spec ContainerSpec) (*Container, error)
	GetFunc                    func(ctx context.Context, name string) (*Container, error)
	ListFunc                   func(ctx context.Context, labels map[string]string) ([]Container, error)
	StatsOnceFunc              func(ctx context.Context, name string) (Stats, error)
	LogsFunc                   func(ctx context.Context, name string, tail int) (string, error)
	RemoveFunc                 func(ctx context.Context, name string, withVolume bool) error
	RestartFunc                func(ctx context.Context, name string, timeout time.Duration) error
	VolumeRemoveFunc           func(ctx context.Context, name string) error
	NetworkGetOrCreateFunc     func(ctx context.Context, name string) error
	InfoFunc                   func(ctx context.Context) (Info, error)
	ContainersBindingPortFunc  func(ctx context.Context, hostPort int) ([]Container, error)
	HealthCheckFunc            func(ctx context.Context) error
	CloseFunc                  func() error
}

var _ Runtime = (*MockRuntime)(nil)

func (m *MockRuntime) Pull(ctx context.Context, image, tag string) error {
	if m.PullFunc != nil {
		return m.PullFunc(ctx, image, tag)
	}
	return nil
}

func (m *MockRuntime) Run(ctx context.Context, spec ContainerSpec) (*Container, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, spec)
	}
	return &Container{Name: spec.Name, Status: "running"}, nil
}

func (m *MockRuntime) Get(ctx context.Context, name string) (*Container, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	return nil, newErr("get", name, KindNotFound, errNotFoundSentinel)
}

func (m *MockRuntime) List(ctx context.Context, labels map[string]string) ([]Container, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, labels)
	}
	return nil, nil
}

func (m *MockRuntime) StatsOnce(ctx context.Context, name string) (Stats, error) {
	if m.StatsOnceFunc != nil {
		return m.StatsOnceFunc(ctx, name)
	}
	return Stats{}, nil
}

func (m *MockRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, name, tail)
	}
	return "", nil
}

func (m *MockRuntime) Remove(ctx context.Context, name string, withVolume bool) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, name, withVolume)
	}
	return nil
}

func (m *MockRuntime) Restart(ctx context.Context, name string, timeout time.Duration) error {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, name, timeout)
	}
	return nil
}

func (m *MockRuntime) VolumeRemove(ctx context.Context, name string) error {
	if m.VolumeRemoveFunc != nil {
		return m.VolumeRemoveFunc(ctx, name)
	}
	return nil
}

func (m *MockRuntime) NetworkGetOrCreate(ctx context.Context, name string) error {
	if m.NetworkGetOrCreateFunc != nil {
		return m.NetworkGetOrCreateFunc(ctx, name)
	}
	return nil
}

func (m *MockRuntime) Info(ctx context.Context) (Info, error) {
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx)
	}
	return Info{TotalRAMBytes: 4 << 30, CPUCount: 2}, nil
}

func (m *MockRuntime) ContainersBindingPort(ctx context.Context, hostPort int) ([]Container, error) {
	if m.ContainersBindingPortFunc != nil {
		return m.ContainersBindingPortFunc(ctx, hostPort)
	}
	return nil, nil
}

func (m *MockRuntime) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var errNotFoundSentinel = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }
