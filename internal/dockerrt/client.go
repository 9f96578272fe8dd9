package dockerrt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	natnat "github.com/docker/go-connections/nat"
)

// Client is the Docker-backed Runtime implementation.
type Client struct {
	cli *client.Client
}

var _ Runtime = (*Client)(nil)

// NewClient connects to the Docker daemon described by cfg.
func NewClient(cfg Config) (*Client, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, newErr("connect", "", KindFatal, err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error { return c.cli.Close() }

func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	if err != nil {
		return newErr("health_check", "", KindTransient, err)
	}
	return nil
}

func (c *Client) Pull(ctx context.Context, imageName, tag string) error {
	ref := imageName
	if tag != "" {
		ref = imageName + ":" + tag
	}
	reader, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return newErr("pull", ref, classifyPull(err), err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return newErr("pull", ref, KindTransient, err)
	}
	return nil
}

func (c *Client) Run(ctx context.Context, spec ContainerSpec) (*Container, error) {
	if err := c.NetworkGetOrCreate(ctx, spec.Network); err != nil {
		return nil, err
	}

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	restartPolicy := container.RestartPolicy{Name: container.RestartPolicyMode(spec.RestartPolicy)}
	if spec.RestartPolicy == "" {
		restartPolicy = container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	}

	var mounts []mount.Mount
	if spec.VolumeName != "" {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: spec.VolumeName,
			Target: spec.VolumeTarget,
		})
	}

	exposedPorts, portBindings, err := buildPortMaps(spec.PublishPorts)
	if err != nil {
		return nil, newErr("run", spec.Name, KindFatal, err)
	}

	containerConfig := &container.Config{
		Image:        spec.Image,
		Env:          env,
		Labels:       spec.Labels,
		Cmd:          spec.Cmd,
		ExposedPorts: exposedPorts,
	}

	hostConfig := &container.HostConfig{
		RestartPolicy: restartPolicy,
		Mounts:        mounts,
		PortBindings:  portBindings,
		Resources: container.Resources{
			Memory:            spec.MemLimitBytes,
			MemoryReservation: spec.MemReservationBytes,
			CPUShares:         spec.CPUShares,
		},
	}

	networkConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			spec.Network: {},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, containerConfig, hostConfig, networkConfig, nil, spec.Name)
	if err != nil {
		return nil, newErr("run", spec.Name, classifyCreate(err), err)
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, newErr("run", spec.Name, KindTransient, err)
	}

	return c.Get(ctx, spec.Name)
}

func (c *Client) Get(ctx context.Context, name string) (*Container, error) {
	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, newErr("get", name, KindNotFound, err)
		}
		return nil, newErr("get", name, KindTransient, err)
	}
	return containerFromInspect(inspect), nil
}

func (c *Client) List(ctx context.Context, labels map[string]string) ([]Container, error) {
	f := filters.NewArgs()
	for k, v := range labels {
		f.Add("label", k+"="+v)
	}
	summaries, err := c.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, newErr("list", "", KindTransient, err)
	}
	out := make([]Container, 0, len(summaries))
	for _, s := range summaries {
		name := strings.TrimPrefix(firstOrEmpty(s.Names), "/")
		out = append(out, Container{
			ID:        s.ID,
			Name:      name,
			Image:     s.Image,
			Status:    mapDockerState(s.State),
			Labels:    s.Labels,
			CreatedAt: time.Unix(s.Created, 0).UTC(),
		})
	}
	return out, nil
}

func (c *Client) StatsOnce(ctx context.Context, name string) (Stats, error) {
	resp, err := c.cli.ContainerStatsOneShot(ctx, name)
	if err != nil {
		return Stats{}, newErr("stats", name, KindTransient, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := decodeJSON(resp.Body, &raw); err != nil {
		return Stats{}, newErr("stats", name, KindTransient, err)
	}
	return Stats{MemUsageBytes: raw.MemoryStats.Usage, MemLimitBytes: raw.MemoryStats.Limit}, nil
}

func (c *Client) Logs(ctx context.Context, name string, tail int) (string, error) {
	opts := container.LogsOptions{ShowStdout: true, ShowStderr: true}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}
	reader, err := c.cli.ContainerLogs(ctx, name, opts)
	if err != nil {
		return "", newErr("logs", name, KindTransient, err)
	}
	defer reader.Close()

	var stdout, stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		return "", newErr("logs", name, KindTransient, err)
	}
	if stderr.Len() > 0 {
		return stdout.String() + stderr.String(), nil
	}
	return stdout.String(), nil
}

func (c *Client) Remove(ctx context.Context, name string, withVolume bool) error {
	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return newErr("remove", name, KindNotFound, err)
		}
		return newErr("remove", name, KindTransient, err)
	}

	var volumeName string
	if withVolume {
		for _, m := range inspect.Mounts {
			if m.Type == mount.TypeVolume {
				volumeName = m.Name
				break
			}
		}
	}

	if err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return newErr("remove", name, KindTransient, err)
	}

	if volumeName != "" {
		_ = c.cli.VolumeRemove(ctx, volumeName, true) // best-effort, missing volume is not fatal
	}
	return nil
}

func (c *Client) Restart(ctx context.Context, name string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	if err := c.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return newErr("restart", name, KindNotFound, err)
		}
		return newErr("restart", name, KindTransient, err)
	}
	return nil
}

func (c *Client) VolumeRemove(ctx context.Context, name string) error {
	if err := c.cli.VolumeRemove(ctx, name, true); err != nil {
		return newErr("volume_remove", name, KindTransient, err)
	}
	return nil
}

func (c *Client) NetworkGetOrCreate(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	_, err := c.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return newErr("network_get_or_create", name, KindTransient, err)
	}
	if _, err := c.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"}); err != nil {
		return newErr("network_get_or_create", name, KindTransient, err)
	}
	return nil
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	info, err := c.cli.Info(ctx)
	if err != nil {
		return Info{}, newErr("info", "", KindTransient, err)
	}
	return Info{
		TotalRAMBytes: uint64(info.MemTotal),
		CPUCount:      info.NCPU,
		ServerVersion: info.ServerVersion,
	}, nil
}

func (c *Client) ContainersBindingPort(ctx context.Context, hostPort int) ([]Container, error) {
	all, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, newErr("containers_binding_port", "", KindTransient, err)
	}
	var out []Container
	for _, s := range all {
		for _, p := range s.Ports {
			if int(p.PublicPort) == hostPort {
				out = append(out, Container{
					ID:   s.ID,
					Name: strings.TrimPrefix(firstOrEmpty(s.Names), "/"),
				})
				break
			}
		}
	}
	return out, nil
}

func buildPortMaps(publish map[string]string) (natnat.PortSet, natnat.PortMap, error) {
	if len(publish) == 0 {
		return nil, nil, nil
	}
	exposed := natnat.PortSet{}
	bindings := natnat.PortMap{}
	for containerPort, hostPort := range publish {
		port, err := natnat.NewPort(portProto(containerPort), portNumber(containerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %q: %w", containerPort, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = []natnat.PortBinding{{HostIP: "0.0.0.0", HostPort: hostPort}}
	}
	return exposed, bindings, nil
}

func portProto(spec string) string {
	if idx := strings.Index(spec, "/"); idx >= 0 {
		return spec[idx+1:]
	}
	return "tcp"
}

func portNumber(spec string) string {
	if idx := strings.Index(spec, "/"); idx >= 0 {
		return spec[:idx]
	}
	return spec
}

func containerFromInspect(inspect container.InspectResponse) *Container {
	var networks []string
	if inspect.NetworkSettings != nil {
		for name := range inspect.NetworkSettings.Networks {
			networks = append(networks, name)
		}
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, inspect.Created)
	status := "unknown"
	var labels map[string]string
	var env map[string]string
	var image string
	if inspect.Config != nil {
		labels = inspect.Config.Labels
		image = inspect.Config.Image
		env = envToMap(inspect.Config.Env)
	}
	if inspect.State != nil {
		status = mapDockerState(inspect.State.Status)
	}
	return &Container{
		ID:        inspect.ID,
		Name:      strings.TrimPrefix(inspect.Name, "/"),
		Image:     image,
		Status:    status,
		Labels:    labels,
		Env:       env,
		CreatedAt: createdAt,
		Networks:  networks,
	}
}

func envToMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if idx := strings.Index(kv, "="); idx >= 0 {
			m[kv[:idx]] = kv[idx+1:]
		}
	}
	return m
}

func firstOrEmpty(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func mapDockerState(state string) string {
	switch state {
	case "running", "exited", "created", "restarting":
		return state
	default:
		return "unknown"
	}
}

func classifyPull(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return KindTransient
}

func classifyCreate(err error) Kind {
	if client.IsErrNotFound(err) {
		return KindNotFound
	}
	if strings.Contains(err.Error(), "Conflict") || strings.Contains(err.Error(), "already in use") {
		return KindConflict
	}
	return KindTransient
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
