package podman

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/converter"
	"github.com/Olympus-chain/autocompose/internal/engine"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// EngineName identifies the Podman engine in logs and errors
const EngineName = "podman"

// ErrNoRepoTags indicates an image has no repository:tag reference
var ErrNoRepoTags = errors.New("image has no repository tags")

// psEntry is one element of `podman ps --format json`
type psEntry struct {
	ID     string            `json:"Id"`
	Names  []string          `json:"Names"`
	Image  string            `json:"Image"`
	Labels map[string]string `json:"Labels"`
	State  string            `json:"State"`
}

// imageEntry is one element of `podman image inspect`
type imageEntry struct {
	ID       string   `json:"Id"`
	RepoTags []string `json:"RepoTags"`
}

// Engine lists and inspects containers through the podman CLI
type Engine struct {
	runner  Runner
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// EngineOptions configures a Podman engine
type EngineOptions struct {
	// RateLimit caps podman invocations per second; zero disables limiting
	RateLimit float64

	// Logger is the logger to use
	Logger *logrus.Logger
}

// NewEngine creates a Podman engine
func NewEngine(runner Runner, options EngineOptions) *Engine {
	logger := options.Logger
	if logger == nil {
		logger = logrus.New()
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	limit := rate.Inf
	burst := 0
	if options.RateLimit > 0 {
		limit = rate.Limit(options.RateLimit)
		burst = max(1, int(options.RateLimit))
	}

	return &Engine{
		runner:  runner,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Name returns the engine name
func (e *Engine) Name() string {
	return EngineName
}

func (e *Engine) fail(op, id string, err error) error {
	return &engine.EngineError{Engine: EngineName, Op: op, ContainerID: id, Err: err}
}

func (e *Engine) run(ctx context.Context, op, id string, args ...string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, e.fail(op, id, err)
	}
	out, err := e.runner.Run(ctx, args...)
	if err != nil {
		return nil, e.fail(op, id, err)
	}
	return out, nil
}

// List returns the containers matching opts
func (e *Engine) List(ctx context.Context, opts engine.ListOptions) ([]engine.Handle, error) {
	args := []string{"ps", "--format", "json"}
	if opts.All {
		args = []string{"ps", "-a", "--format", "json"}
	}

	out, err := e.run(ctx, "list", "", args...)
	if err != nil {
		return nil, err
	}

	var entries []psEntry
	if len(strings.TrimSpace(string(out))) > 0 {
		if err := json.Unmarshal(out, &entries); err != nil {
			return nil, e.fail("list", "", errors.Wrap(err, "failed to parse podman ps output"))
		}
	}

	handles := make([]engine.Handle, 0, len(entries))
	for _, entry := range entries {
		handles = append(handles, engine.Handle{
			ID:     entry.ID,
			Names:  entry.Names,
			Image:  entry.Image,
			Labels: entry.Labels,
			State:  entry.State,
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

// Inspect returns the *converter.PodmanContainer for a handle
func (e *Engine) Inspect(ctx context.Context, handle engine.Handle) (engine.Record, error) {
	if err := utils.ValidateContainerID(handle.ID); err != nil {
		return nil, e.fail("inspect", handle.ID, err)
	}

	out, err := e.run(ctx, "inspect", handle.ID, "inspect", "--type", "container", handle.ID)
	if err != nil {
		return nil, err
	}

	record, err := converter.ParsePodmanInspect(out)
	if err != nil {
		return nil, e.fail("inspect", handle.ID, err)
	}
	return record, nil
}

// ResolveImage maps an image ID to its first repository tag
func (e *Engine) ResolveImage(ctx context.Context, imageID string) (string, error) {
	if err := utils.ValidateImageID(imageID); err != nil {
		return "", e.fail("image inspect", "", err)
	}

	out, err := e.run(ctx, "image inspect", "", "image", "inspect", imageID)
	if err != nil {
		return "", err
	}

	var images []imageEntry
	if err := json.Unmarshal(out, &images); err != nil {
		return "", e.fail("image inspect", "", errors.Wrap(err, "failed to parse podman image inspect output"))
	}
	if len(images) == 0 || len(images[0].RepoTags) == 0 {
		return "", e.fail("image inspect", "", errors.Wrap(ErrNoRepoTags, utils.ShortID(strings.TrimPrefix(imageID, "sha256:"))))
	}
	return utils.FamiliarImageName(images[0].RepoTags[0]), nil
}
