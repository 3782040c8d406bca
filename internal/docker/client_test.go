package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Olympus-chain/autocompose/internal/interfaces"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestNewManager_Options(t *testing.T) {
	testCases := []struct {
		name          string
		opts          []ClientOption
		expectError   bool
		errorContains string
		check         func(t *testing.T, cfg ClientConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg ClientConfig) {
				assert.Empty(t, cfg.Host)
				assert.Equal(t, 5*time.Second, cfg.PingTimeout)
				assert.Equal(t, 2, cfg.RetryCount)
			},
		},
		{
			name: "host and version",
			opts: []ClientOption{WithHost("tcp://10.0.0.1:2376"), WithAPIVersion("v1.45")},
			check: func(t *testing.T, cfg ClientConfig) {
				assert.Equal(t, "tcp://10.0.0.1:2376", cfg.Host)
				assert.Equal(t, "1.45", cfg.APIVersion)
			},
		},
		{
			name: "empty host keeps environment",
			opts: []ClientOption{WithHost("")},
			check: func(t *testing.T, cfg ClientConfig) {
				assert.Empty(t, cfg.Host)
			},
		},
		{
			name:          "invalid host",
			opts:          []ClientOption{WithHost("localhost:2375")},
			expectError:   true,
			errorContains: "invalid Docker host",
		},
		{
			name:          "invalid api version",
			opts:          []ClientOption{WithAPIVersion("1")},
			expectError:   true,
			errorContains: "invalid Docker API version",
		},
		{
			name:          "tls without cert path",
			opts:          []ClientOption{WithTLS(true, "")},
			expectError:   true,
			errorContains: "certificate path",
		},
		{
			name:          "nil option",
			opts:          []ClientOption{nil},
			expectError:   true,
			errorContains: "nil option",
		},
		{
			name:          "negative retry",
			opts:          []ClientOption{WithRetry(-1, 0)},
			expectError:   true,
			errorContains: "non-negative",
		},
		{
			name:          "nil logger",
			opts:          []ClientOption{WithLogger(nil)},
			expectError:   true,
			errorContains: "logger cannot be nil",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			manager, err := NewManager(tc.opts...)
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)
				return
			}
			require.NoError(t, err)
			tc.check(t, manager.GetConfig())
		})
	}
}

func newTestManager(t *testing.T, api interfaces.DockerAPI, factoryErr error) *ClientManager {
	manager, err := NewManager(WithLogger(quietLogger()), WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	manager.factory = func(opts ...client.Opt) (interfaces.DockerAPI, error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		return api, nil
	}
	return manager
}

func TestClientManager_GetWithContext(t *testing.T) {
	api := new(MockDockerClient)
	api.On("Ping", mock.Anything).Return(types.Ping{APIVersion: "1.45"}, nil).Once()
	api.On("Close").Return(nil).Once()

	manager := newTestManager(t, api, nil)

	first, err := manager.GetWithContext(context.Background())
	require.NoError(t, err)
	second, err := manager.GetWithContext(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, manager.Close())
	assert.True(t, manager.IsClosed())
	require.NoError(t, manager.Close())

	_, err = manager.GetWithContext(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
	api.AssertExpectations(t)
}

func TestClientManager_PingFailureRetries(t *testing.T) {
	api := new(MockDockerClient)
	api.On("Ping", mock.Anything).Return(nil, errors.New("daemon down")).Twice()
	api.On("Close").Return(nil).Twice()

	manager := newTestManager(t, api, nil)

	_, err := manager.GetWithContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Contains(t, err.Error(), "after 2 attempts")
	api.AssertExpectations(t)
}

func TestClientManager_FactoryError(t *testing.T) {
	manager := newTestManager(t, nil, errors.New("bad host"))

	_, err := manager.GetWithContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestClientManager_CancelledContext(t *testing.T) {
	manager := newTestManager(t, new(MockDockerClient), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.GetWithContext(ctx)
	assert.ErrorIs(t, err, ErrContextCancelled)
}

func TestClientManager_TLSFilesMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.pem"), []byte("ca"), 0o600))

	manager, err := NewManager(WithLogger(quietLogger()), WithTLS(true, dir), WithRetry(0, 0))
	require.NoError(t, err)

	_, err = manager.GetWithContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTLSConfig)
}

func TestClientManager_ClientOpts(t *testing.T) {
	manager, err := NewManager(WithHost("unix:///run/user/1000/docker.sock"), WithAPIVersion("1.44"))
	require.NoError(t, err)
	assert.Len(t, manager.clientOpts(), 3)

	manager, err = NewManager(WithTLS(true, "/certs"))
	require.NoError(t, err)
	assert.Len(t, manager.clientOpts(), 3)
}
