package dockerrt

// Config configures the connection to the Docker daemon.
type Config struct {
	// Host is the daemon endpoint, e.g. "unix:///var/run/docker.sock" or
	// "tcp://localhost:2375". Empty selects the client library default.
	Host string

	// APIVersion pins the negotiated API version. Empty means negotiate
	// automatically against the daemon.
	APIVersion string
}
