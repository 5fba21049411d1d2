package backend

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocker keeps containers in memory and honours label filters.
type fakeDocker struct {
	containers []types.Container
	images     map[string]bool
	pulled     []string
	created    []*container.Config
	hosts      []*container.HostConfig
	stopped    []string
	removed    []string
	startErr   error
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{images: map[string]bool{}}
}

func (f *fakeDocker) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	var out []types.Container
	for _, c := range f.containers {
		match := true
		for _, label := range options.Filters.Get("label") {
			k, v, _ := strings.Cut(label, "=")
			if c.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	id := "id-" + name
	f.created = append(f.created, config)
	f.hosts = append(f.hosts, hostConfig)
	f.containers = append(f.containers, types.Container{
		ID:     id,
		Names:  []string{"/" + name},
		Image:  config.Image,
		Labels: config.Labels,
		State:  "created",
	})
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	if f.startErr != nil {
		return f.startErr
	}
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers[i].State = "running"
		}
	}
	return nil
}

func (f *fakeDocker) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	kept := f.containers[:0]
	for _, c := range f.containers {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.containers = kept
	return nil
}

func (f *fakeDocker) ImageInspectWithRaw(_ context.Context, image string) (types.ImageInspect, []byte, error) {
	if f.images[image] {
		return types.ImageInspect{ID: image}, nil, nil
	}
	return types.ImageInspect{}, nil, errors.New("no such image")
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ types.ImagePullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	f.images[ref] = true
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func allPortsFree(t *testing.T) {
	t.Helper()
	orig := portBindable
	portBindable = func(int) bool { return true }
	t.Cleanup(func() { portBindable = orig })
}

func TestManager_UpCreatesContainer(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	m := NewManager(api)

	inst, err := m.Up(context.Background(), UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)

	assert.Equal(t, StatusRunning, inst.Status)
	assert.Equal(t, "savestash-redis-dev", inst.Name)
	assert.Equal(t, 6379, inst.Port)
	assert.NotEmpty(t, inst.RunID)
	assert.Equal(t, []string{"redis:7-alpine"}, api.pulled)

	require.Len(t, api.created, 1)
	labels := api.created[0].Labels
	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "dev", labels[LabelProfile])
	assert.Equal(t, ComponentRedis, labels[LabelComponent])
	assert.Equal(t, "6379", labels[LabelRedisPort])
	assert.Equal(t, inst.RunID, labels[LabelRunID])

	bindings := api.hosts[0].PortBindings[redisContainerPort]
	require.Len(t, bindings, 1)
	assert.Equal(t, "127.0.0.1", bindings[0].HostIP)
	assert.Equal(t, "6379", bindings[0].HostPort)
}

func TestManager_UpSkipsPull(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	api.images["redis:7-alpine"] = true

	_, err := NewManager(api).Up(context.Background(), UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)
	assert.Empty(t, api.pulled)
}

func TestManager_UpIsIdempotent(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	m := NewManager(api)
	ctx := context.Background()

	first, err := m.Up(ctx, UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)
	second, err := m.Up(ctx, UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)

	assert.Len(t, api.created, 1)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Port, second.Port)
}

func TestManager_UpRestartsStopped(t *testing.T) {
	api := newFakeDocker()
	api.containers = []types.Container{{
		ID:     "abc",
		Names:  []string{"/savestash-redis-dev"},
		Labels: map[string]string{LabelProject: "true", LabelProfile: "dev", LabelComponent: ComponentRedis, LabelRedisPort: "6390"},
		State:  "exited",
	}}

	inst, err := NewManager(api).Up(context.Background(), UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, inst.Status)
	assert.Equal(t, 6390, inst.Port)
	assert.Empty(t, api.created)
	assert.Equal(t, "running", api.containers[0].State)
}

func TestManager_UpStartFailureRemovesContainer(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	api.startErr = errors.New("port is already allocated")

	_, err := NewManager(api).Up(context.Background(), UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is already allocated")
	assert.Empty(t, api.containers)
}

func TestManager_ProfilesGetDistinctPorts(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	m := NewManager(api)
	ctx := context.Background()

	a, err := m.Up(ctx, UpOptions{Profile: "a", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)
	b, err := m.Up(ctx, UpOptions{Profile: "b", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)

	assert.Equal(t, 6379, a.Port)
	assert.Equal(t, 6380, b.Port)
}

func TestManager_Status(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	m := NewManager(api)
	ctx := context.Background()

	inst, err := m.Status(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, inst.Status)
	assert.Equal(t, "savestash-redis-dev", inst.Name)

	_, err = m.Up(ctx, UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)

	inst, err = m.Status(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, inst.Status)
	assert.Equal(t, 6379, inst.Port)
	assert.True(t, strings.HasSuffix(inst.URL, ":6379"))
}

func TestManager_Down(t *testing.T) {
	allPortsFree(t)
	api := newFakeDocker()
	m := NewManager(api)
	ctx := context.Background()

	_, err := m.Down(ctx, "dev")
	assert.ErrorIs(t, err, ErrNotFound)

	up, err := m.Up(ctx, UpOptions{Profile: "dev", Image: "redis:7-alpine", Port: 6379})
	require.NoError(t, err)

	inst, err := m.Down(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, inst.Status)
	assert.Equal(t, []string{up.ID}, api.stopped)
	assert.Equal(t, []string{up.ID}, api.removed)
	assert.Empty(t, api.containers)
}
