package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/stretchr/testify/mock"

	"github.com/Olympus-chain/autocompose/internal/interfaces"
)

// MockDockerClient is a shared mock implementation of interfaces.DockerAPI
type MockDockerClient struct {
	mock.Mock
}

var _ interfaces.DockerAPI = (*MockDockerClient)(nil)

func (m *MockDockerClient) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	args := m.Called(ctx, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]container.Summary), args.Error(1)
}

func (m *MockDockerClient) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return container.InspectResponse{}, args.Error(1)
	}
	return args.Get(0).(container.InspectResponse), args.Error(1)
}

func (m *MockDockerClient) ImageInspectWithRaw(ctx context.Context, imageID string) (image.InspectResponse, []byte, error) {
	args := m.Called(ctx, imageID)
	var raw []byte
	if args.Get(1) != nil {
		raw = args.Get(1).([]byte)
	}
	if args.Get(0) == nil {
		return image.InspectResponse{}, raw, args.Error(2)
	}
	return args.Get(0).(image.InspectResponse), raw, args.Error(2)
}

func (m *MockDockerClient) Ping(ctx context.Context) (types.Ping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return types.Ping{}, args.Error(1)
	}
	return args.Get(0).(types.Ping), args.Error(1)
}

func (m *MockDockerClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
