// Package dockerrt is a thin typed façade over a Docker-compatible
// container runtime. It knows nothing about instances, env projections,
// or labels — it only pulls, runs, inspects, lists, and removes
// containers, volumes, and networks, and classifies errors into a small
// set of kinds the rest of the system can switch on.
package dockerrt

import (
	"fmt"
	"time"
)

// ContainerSpec is everything needed to run a single container.
type ContainerSpec struct {
	Name                string
	Image               string
	Env                 map[string]string
	Labels              map[string]string
	Network             string
	VolumeName          string // mounted at VolumeTarget; empty means no data volume
	VolumeTarget        string
	MemLimitBytes       int64
	MemReservationBytes int64
	CPUShares           int64
	RestartPolicy       string            // "unless-stopped", "no", ...
	PublishPorts        map[string]string // containerPort/proto -> hostPort, infra containers only
	Cmd                 []string
}

// Container is the runtime-observed state of a container.
type Container struct {
	ID        string
	Name      string
	Image     string
	Status    string // running | exited | created | restarting | unknown
	Labels    map[string]string
	Env       map[string]string
	CreatedAt time.Time
	Networks  []string
}

// Stats is a single point-in-time resource sample.
type Stats struct {
	MemUsageBytes uint64
	MemLimitBytes uint64
}

// Info is host-level information used for capacity planning.
type Info struct {
	TotalRAMBytes uint64
	CPUCount      int
	ServerVersion string
}

// Kind classifies a runtime error so callers can switch on it without
// string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindTransient
	KindFatal
)

// Error wraps an underlying runtime error with a Kind and the operation
// that produced it.
type Error struct {
	Op   string
	Name string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("dockerrt: %s %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("dockerrt: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op, name string, kind Kind, err error) *Error {
	return &Error{Op: op, Name: name, Kind: kind, Err: err}
}

// IsNotFound reports whether err is (or wraps) a KindNotFound Error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsConflict reports whether err is (or wraps) a KindConflict Error.
func IsConflict(err error) bool { return kindOf(err) == KindConflict }

// IsTransient reports whether err is (or wraps) a KindTransient Error.
func IsTransient(err error) bool { return kindOf(err) == KindTransient }

func kindOf(err error) Kind {
	var rtErr *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			rtErr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if rtErr == nil {
		return KindUnknown
	}
	return rtErr.Kind
}
