// Package docker realizes the container engine boundary on top of the Docker API
package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Olympus-chain/autocompose/internal/engine"
	"github.com/Olympus-chain/autocompose/internal/interfaces"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// EngineName identifies the Docker engine in logs and errors
const EngineName = "docker"

// ErrNoRepoTags indicates an image has no repository:tag reference
var ErrNoRepoTags = errors.New("image has no repository tags")

// ClientProvider hands out a connected Docker API client
type ClientProvider interface {
	GetWithContext(ctx context.Context) (interfaces.DockerAPI, error)
}

// staticProvider wraps an already connected client
type staticProvider struct {
	api interfaces.DockerAPI
}

func (p staticProvider) GetWithContext(context.Context) (interfaces.DockerAPI, error) {
	return p.api, nil
}

// StaticClient adapts a ready client to ClientProvider
func StaticClient(api interfaces.DockerAPI) ClientProvider {
	return staticProvider{api: api}
}

// Engine lists and inspects containers through the Docker API
type Engine struct {
	provider ClientProvider
	limiter  *rate.Limiter
	logger   *logrus.Logger
}

// EngineOptions configures a Docker engine
type EngineOptions struct {
	// RateLimit caps API calls per second; zero disables limiting
	RateLimit float64

	// Logger is the logger to use
	Logger *logrus.Logger
}

// NewEngine creates a Docker engine
func NewEngine(provider ClientProvider, options EngineOptions) *Engine {
	logger := options.Logger
	if logger == nil {
		logger = logrus.New()
	}

	limit := rate.Inf
	burst := 0
	if options.RateLimit > 0 {
		limit = rate.Limit(options.RateLimit)
		burst = max(1, int(options.RateLimit))
	}

	return &Engine{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// Name returns the engine name
func (e *Engine) Name() string {
	return EngineName
}

func (e *Engine) fail(op, id string, err error) error {
	return &engine.EngineError{Engine: EngineName, Op: op, ContainerID: id, Err: err}
}

func (e *Engine) api(ctx context.Context, op, id string) (interfaces.DockerAPI, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, e.fail(op, id, err)
	}
	cli, err := e.provider.GetWithContext(ctx)
	if err != nil {
		return nil, e.fail(op, id, err)
	}
	return cli, nil
}

// List returns the containers matching opts
func (e *Engine) List(ctx context.Context, opts engine.ListOptions) ([]engine.Handle, error) {
	cli, err := e.api(ctx, "list", "")
	if err != nil {
		return nil, err
	}

	summaries, err := cli.ContainerList(ctx, container.ListOptions{All: opts.All})
	if err != nil {
		return nil, e.fail("list", "", err)
	}

	handles := make([]engine.Handle, 0, len(summaries))
	for _, s := range summaries {
		handles = append(handles, engine.Handle{
			ID:     s.ID,
			Names:  s.Names,
			Image:  s.Image,
			Labels: s.Labels,
			State:  string(s.State),
		})
	}

	kept := opts.Filter.Apply(handles)
	e.logger.WithFields(logrus.Fields{
		"engine":   EngineName,
		"listed":   len(handles),
		"selected": len(kept),
		"all":      opts.All,
	}).Debug("Listed containers")
	return kept, nil
}

// Inspect returns the *container.InspectResponse for a handle
func (e *Engine) Inspect(ctx context.Context, handle engine.Handle) (engine.Record, error) {
	if err := utils.ValidateContainerID(handle.ID); err != nil {
		return nil, e.fail("inspect", handle.ID, err)
	}

	cli, err := e.api(ctx, "inspect", handle.ID)
	if err != nil {
		return nil, err
	}

	info, err := cli.ContainerInspect(ctx, handle.ID)
	if err != nil {
		return nil, e.fail("inspect", handle.ID, err)
	}
	return &info, nil
}

// ResolveImage maps an image ID to its first repository tag
func (e *Engine) ResolveImage(ctx context.Context, imageID string) (string, error) {
	if err := utils.ValidateImageID(imageID); err != nil {
		return "", e.fail("image inspect", "", err)
	}

	cli, err := e.api(ctx, "image inspect", "")
	if err != nil {
		return "", err
	}

	img, _, err := cli.ImageInspectWithRaw(ctx, imageID)
	if err != nil {
		return "", e.fail("image inspect", "", fmt.Errorf("%s: %w", utils.ShortID(imageID), err))
	}
	if len(img.RepoTags) == 0 {
		return "", e.fail("image inspect", "", fmt.Errorf("%s: %w", utils.ShortID(imageID), ErrNoRepoTags))
	}
	return utils.FamiliarImageName(img.RepoTags[0]), nil
}
