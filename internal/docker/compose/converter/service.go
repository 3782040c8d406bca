package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
)

// ErrTranslation is returned when a container record lacks a structurally required block
var ErrTranslation = errors.New("container record cannot be translated")

// TranslationError describes a container record that cannot become a service
type TranslationError struct {
	ContainerID string
	Missing     []string
}

// Error implements the error interface
func (e *TranslationError) Error() string {
	id := e.ContainerID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("container %s: missing %s", id, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrTranslation
func (e *TranslationError) Unwrap() error {
	return ErrTranslation
}

// ConvertOptions defines options for converting a container
type ConvertOptions struct {
	// IncludeSensitive keeps environment variables that look like secrets
	IncludeSensitive bool

	// FallbackName is used when the container has no usable name
	FallbackName string
}

// ConvertServiceResult contains the result of converting a container
type ConvertServiceResult struct {
	// Name is the sanitized service name
	Name string

	// Service is the translated service
	Service *types.Service

	// Networks are the network names the service references
	Networks []string

	// Volumes are the named volumes the service references
	Volumes []string

	// NetworkConfigs are descriptor-level network definitions derived from
	// the container, keyed by network name
	NetworkConfigs map[string]types.NetworkConfig
}

// ServiceConverter translates raw engine records into compose services.
// Conversion is pure; it performs no I/O.
type ServiceConverter struct {
	logger *logrus.Logger
}

// NewServiceConverter creates a new service converter
func NewServiceConverter(logger *logrus.Logger) *ServiceConverter {
	if logger == nil {
		logger = logrus.New()
	}

	return &ServiceConverter{
		logger: logger,
	}
}

// Convert dispatches on the concrete record type returned by an engine
func (c *ServiceConverter) Convert(record interface{}, options ConvertOptions) (*ConvertServiceResult, error) {
	switch r := record.(type) {
	case *container.InspectResponse:
		if r == nil {
			return nil, &TranslationError{Missing: []string{"record"}}
		}
		return c.ConvertDocker(*r, options)
	case container.InspectResponse:
		return c.ConvertDocker(r, options)
	case *PodmanContainer:
		if r == nil {
			return nil, &TranslationError{Missing: []string{"record"}}
		}
		return c.ConvertPodman(*r, options)
	case PodmanContainer:
		return c.ConvertPodman(r, options)
	default:
		return nil, fmt.Errorf("%w: unsupported record type %T", ErrTranslation, record)
	}
}
