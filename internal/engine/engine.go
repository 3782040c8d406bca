// Package engine defines the container engine boundary shared by the Docker
// and Podman realizations.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrEngine is the root of every engine failure
var ErrEngine = errors.New("container engine error")

// Handle is an opaque reference to a container returned by List
type Handle struct {
	// ID is the engine container ID
	ID string

	// Names are the container names as reported by the engine
	Names []string

	// Image is the image reference the container was created from
	Image string

	// Labels are the container labels
	Labels map[string]string

	// State is the engine state, e.g. "running" or "exited"
	State string
}

// Name returns the first container name, or an empty string
func (h Handle) Name() string {
	if len(h.Names) == 0 {
		return ""
	}
	return h.Names[0]
}

// Record is the raw result of inspecting one container. The concrete type
// depends on the engine and is understood by the converter.
type Record interface{}

// ListOptions controls which containers List returns
type ListOptions struct {
	// All includes stopped containers
	All bool

	// Filter narrows the result; nil keeps everything
	Filter *Filter
}

// Engine is a container engine that can enumerate and inspect containers
type Engine interface {
	// Name returns the engine name, e.g. "docker"
	Name() string

	// List returns the containers matching opts
	List(ctx context.Context, opts ListOptions) ([]Handle, error)

	// Inspect returns the raw record of one container
	Inspect(ctx context.Context, handle Handle) (Record, error)

	// ResolveImage maps an image ID to a repository:tag reference
	ResolveImage(ctx context.Context, imageID string) (string, error)
}

// EngineError describes a failed engine operation
type EngineError struct {
	Engine      string
	Op          string
	ContainerID string
	Err         error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.ContainerID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Engine, e.Op, e.ContainerID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Engine, e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports ErrEngine as a match
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}
