package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/Olympus-chain/autocompose/internal/interfaces"
)

var (
	// ErrNilOption indicates a nil option was provided
	ErrNilOption = errors.New("nil option provided to client configuration")

	// ErrInvalidHost indicates an invalid Docker host
	ErrInvalidHost = errors.New("invalid Docker host specification")

	// ErrMissingTLSConfig indicates incomplete TLS configuration
	ErrMissingTLSConfig = errors.New("TLS verification enabled but certificate path not provided")

	// ErrInvalidAPIVersion indicates an invalid API version
	ErrInvalidAPIVersion = errors.New("invalid Docker API version format")

	// ErrConnectionFailed indicates a connection failure to the Docker daemon
	ErrConnectionFailed = errors.New("failed to connect to Docker daemon")

	// ErrClientClosed indicates the client manager has been closed
	ErrClientClosed = errors.New("Docker client manager has been closed")

	// ErrContextCancelled indicates the context was cancelled
	ErrContextCancelled = errors.New("context was cancelled while connecting to Docker")
)

// ClientOption represents a functional option for configuring the Docker client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the Docker client
type ClientConfig struct {
	// Host is the Docker daemon socket to connect to; empty uses DOCKER_HOST
	Host string

	// APIVersion is the Docker API version to use; empty negotiates
	APIVersion string

	// TLSVerify indicates whether to verify TLS certificates
	TLSVerify bool

	// CertPath is the directory holding ca.pem, cert.pem and key.pem
	CertPath string

	// PingTimeout is the timeout for ping operations
	PingTimeout time.Duration

	// RetryCount is the number of connection retries
	RetryCount int

	// RetryDelay is the delay between retries
	RetryDelay time.Duration

	// Logger is the logger to use
	Logger *logrus.Logger
}

// apiFactory builds a Docker API client from client options
type apiFactory func(opts ...client.Opt) (interfaces.DockerAPI, error)

func newDockerAPI(opts ...client.Opt) (interfaces.DockerAPI, error) {
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// ClientManager lazily creates and owns a Docker API client
type ClientManager struct {
	config  ClientConfig
	client  interfaces.DockerAPI
	factory apiFactory
	mu      sync.Mutex
	logger  *logrus.Logger
	closed  bool
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout: 5 * time.Second,
		RetryCount:  2,
		RetryDelay:  500 * time.Millisecond,
		Logger:      logrus.New(),
	}
}

// WithHost sets the Docker daemon host
func WithHost(host string) ClientOption {
	return func(config *ClientConfig) error {
		if host == "" {
			return nil
		}
		for _, scheme := range []string{"unix://", "tcp://", "http://", "https://", "npipe://", "ssh://"} {
			if strings.HasPrefix(host, scheme) {
				config.Host = host
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrInvalidHost, host)
	}
}

// WithAPIVersion sets the Docker API version
func WithAPIVersion(version string) ClientOption {
	return func(config *ClientConfig) error {
		if version == "" {
			config.APIVersion = ""
			return nil
		}
		parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
		if len(parts) != 2 {
			return fmt.Errorf("%w: version should be in format vX.Y or X.Y", ErrInvalidAPIVersion)
		}
		config.APIVersion = strings.TrimPrefix(version, "v")
		return nil
	}
}

// WithTLS enables TLS verification using certificates from certPath
func WithTLS(verify bool, certPath string) ClientOption {
	return func(config *ClientConfig) error {
		config.TLSVerify = verify
		config.CertPath = certPath
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) ClientOption {
	return func(config *ClientConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		config.Logger = logger
		return nil
	}
}

// WithRetry sets retry parameters
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if count < 0 {
			return fmt.Errorf("retry count must be non-negative")
		}
		if delay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.RetryCount = count
		config.RetryDelay = delay
		return nil
	}
}

// NewManager creates a new Docker client manager. No connection is made until
// the first call to GetWithContext.
func NewManager(opts ...ClientOption) (*ClientManager, error) {
	config := DefaultClientConfig()

	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}

	if config.TLSVerify && config.CertPath == "" {
		return nil, ErrMissingTLSConfig
	}

	return &ClientManager{
		config:  config,
		factory: newDockerAPI,
		logger:  config.Logger,
	}, nil
}

// GetWithContext returns the Docker client, creating and pinging it on first use
func (m *ClientManager) GetWithContext(ctx context.Context) (interfaces.DockerAPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClientClosed
	}
	if m.client != nil {
		return m.client, nil
	}

	var lastErr error
	for i := 0; i <= m.config.RetryCount; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		default:
		}

		m.logger.Debugf("Attempting to create Docker client (attempt %d/%d)", i+1, m.config.RetryCount+1)
		cli, err := m.createClient(ctx)
		if err == nil {
			m.client = cli
			return cli, nil
		}
		lastErr = err

		m.logger.WithError(err).Warnf("Error creating Docker client (attempt %d/%d)", i+1, m.config.RetryCount+1)
		if i < m.config.RetryCount {
			select {
			case <-time.After(m.config.RetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w during retry delay: %w", ErrContextCancelled, ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("failed to create Docker client after %d attempts: %w", m.config.RetryCount+1, lastErr)
}

// clientOpts translates the configuration into Docker client options
func (m *ClientManager) clientOpts() []client.Opt {
	opts := []client.Opt{client.FromEnv}

	if m.config.Host != "" {
		opts = append(opts, client.WithHost(m.config.Host))
	}

	if m.config.APIVersion != "" {
		opts = append(opts, client.WithVersion(m.config.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	if m.config.TLSVerify {
		opts = append(opts, client.WithTLSClientConfig(
			filepath.Join(m.config.CertPath, "ca.pem"),
			filepath.Join(m.config.CertPath, "cert.pem"),
			filepath.Join(m.config.CertPath, "key.pem"),
		))
	}

	return opts
}

// createClient handles the actual client creation logic
func (m *ClientManager) createClient(ctx context.Context) (interfaces.DockerAPI, error) {
	if m.config.TLSVerify {
		for _, name := range []string{"ca.pem", "cert.pem", "key.pem"} {
			if _, err := os.Stat(filepath.Join(m.config.CertPath, name)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMissingTLSConfig, err)
			}
		}
	}

	cli, err := m.factory(m.clientOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}

	m.logger.WithFields(logrus.Fields{
		"host":        m.config.Host,
		"api_version": m.config.APIVersion,
	}).Debug("Docker client created and ping successful")
	return cli, nil
}

// Close closes the managed Docker client and marks the manager as closed
func (m *ClientManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	if err != nil {
		return fmt.Errorf("failed to close Docker client: %w", err)
	}
	return nil
}

// IsClosed checks if the client manager has been closed
func (m *ClientManager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetConfig returns a copy of the current client configuration
func (m *ClientManager) GetConfig() ClientConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}
