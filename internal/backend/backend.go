// Package backend manages a Docker-hosted Redis that serves as a profile's local store.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"
)

// redisContainerPort is the port Redis listens on inside the container.
const redisContainerPort = nat.Port("6379/tcp")

// ErrNotFound is returned when a profile has no store container.
var ErrNotFound = errors.New("store container not found")

// Status represents the state of a profile's store container
type Status string

const (
	StatusRunning Status = "Running"
	StatusStopped Status = "Stopped"
	StatusMissing Status = "Missing"
)

// Instance describes a profile's store container.
type Instance struct {
	Profile string `json:"profile"`
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Image   string `json:"image,omitempty"`
	Status  Status `json:"status"`
	Port    int    `json:"port,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// UpOptions configures Manager.Up.
type UpOptions struct {
	Profile string
	Image   string
	// Port is the first host port to try.
	Port int
}

// Manager starts, stops and inspects store containers.
type Manager struct {
	api DockerAPI
}

// NewManager creates a manager on top of a Docker client.
func NewManager(api DockerAPI) *Manager {
	return &Manager{api: api}
}

// Status reports the profile's store container. A profile without one
// yields StatusMissing and no error.
func (m *Manager) Status(ctx context.Context, profile string) (*Instance, error) {
	c, err := m.find(ctx, profile)
	if errors.Is(err, ErrNotFound) {
		return &Instance{Profile: profile, Name: ContainerName(profile), Status: StatusMissing}, nil
	}
	if err != nil {
		return nil, err
	}
	return describe(profile, c), nil
}

// Up ensures the profile's store container is running. An existing stopped
// container is restarted; otherwise the image is pulled if needed and a new
// container is created on the next free port.
func (m *Manager) Up(ctx context.Context, opts UpOptions) (*Instance, error) {
	c, err := m.find(ctx, opts.Profile)
	switch {
	case err == nil:
		inst := describe(opts.Profile, c)
		if inst.Status == StatusRunning {
			return inst, nil
		}
		log.Printf("[INFO] Restarting store container %s", inst.Name)
		if err := m.api.ContainerStart(ctx, c.ID, container.StartOptions{}); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", inst.Name, err)
		}
		inst.Status = StatusRunning
		return inst, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	port, err := FindNextAvailablePort(ctx, m.api, opts.Port)
	if err != nil {
		return nil, err
	}

	if err := m.ensureImage(ctx, opts.Image); err != nil {
		return nil, err
	}

	name := ContainerName(opts.Profile)
	runID := GenerateRunID()
	labels := BuildLabels(opts.Profile, runID, ComponentRedis)
	labels[LabelRedisPort] = strconv.Itoa(port)

	resp, err := m.api.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			redisContainerPort: struct{}{},
		},
	}, &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		PortBindings: nat.PortMap{
			redisContainerPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: strconv.Itoa(port)},
			},
		},
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create store container: %w", err)
	}

	if err := m.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.api.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start store container: %w", err)
	}

	log.Printf("[INFO] Started store container %s on port %d (run %s)", name, port, runID)

	return &Instance{
		Profile: opts.Profile,
		Name:    name,
		ID:      resp.ID,
		Image:   opts.Image,
		Status:  StatusRunning,
		Port:    port,
		RunID:   runID,
		URL:     RedisURL(port),
	}, nil
}

// Down stops and removes the profile's store container and its data.
func (m *Manager) Down(ctx context.Context, profile string) (*Instance, error) {
	c, err := m.find(ctx, profile)
	if err != nil {
		return nil, err
	}
	inst := describe(profile, c)

	timeout := 10
	if err := m.api.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		// Might already be stopped
		log.Printf("[WARN] failed to stop %s: %v", inst.Name, err)
	}
	if err := m.api.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", inst.Name, err)
	}

	inst.Status = StatusMissing
	return inst, nil
}

func (m *Manager) find(ctx context.Context, profile string) (types.Container, error) {
	containers, err := m.api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelProfile, profile)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelComponent, ComponentRedis)),
		),
	})
	if err != nil {
		return types.Container{}, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return types.Container{}, fmt.Errorf("profile %q: %w", profile, ErrNotFound)
	}
	return containers[0], nil
}

func (m *Manager) ensureImage(ctx context.Context, image string) error {
	if _, _, err := m.api.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	log.Printf("[INFO] Pulling image %s", image)
	reader, err := m.api.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to complete image pull %s: %w", image, err)
	}
	return nil
}

func describe(profile string, c types.Container) *Instance {
	inst := &Instance{
		Profile: profile,
		Name:    ContainerName(profile),
		ID:      c.ID,
		Image:   c.Image,
		Status:  StatusStopped,
		RunID:   c.Labels[LabelRunID],
	}
	if len(c.Names) > 0 {
		inst.Name = strings.TrimPrefix(c.Names[0], "/")
	}
	if c.State == "running" {
		inst.Status = StatusRunning
	}
	if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
		inst.Port = port
		inst.URL = RedisURL(port)
	}
	return inst
}

// RedisHost returns the hostname under which published ports are reachable.
// Inside a container that is host.docker.internal.
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// RedisURL constructs the Redis URL for a published port.
func RedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), port)
}
