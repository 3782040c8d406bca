// Package interfaces defines the narrow engine APIs the introspection code depends on
package interfaces

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

// DockerAPI is the subset of the Docker client used to introspect containers
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (image.InspectResponse, []byte, error)
	Ping(ctx context.Context) (types.Ping, error)
	Close() error
}
