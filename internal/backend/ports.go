package backend

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// portRange is the number of ports probed above the starting port.
const portRange = 100

// portBindable reports whether a port can be bound on localhost.
var portBindable = func(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindNextAvailablePort returns the first port at or above start that is neither
// claimed by another savestash Redis container nor bound on the host.
func FindNextAvailablePort(ctx context.Context, api DockerAPI, start int) (int, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelComponent, ComponentRedis)),
		),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	usedPorts := make(map[int]bool)
	for _, c := range containers {
		if portStr, ok := c.Labels[LabelRedisPort]; ok {
			if port, err := strconv.Atoi(portStr); err == nil {
				usedPorts[port] = true
			}
		}
	}

	end := start + portRange - 1
	for port := start; port <= end; port++ {
		if usedPorts[port] {
			continue
		}
		if portBindable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available Redis ports (range %d-%d exhausted)", start, end)
}
