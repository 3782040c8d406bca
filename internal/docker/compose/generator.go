// Package compose synthesizes compose descriptors from live containers and
// encodes them in the supported file formats.
package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/converter"
	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
	"github.com/Olympus-chain/autocompose/internal/engine"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// DefaultVersion is the compose file version used when none is requested
const DefaultVersion = "3.9"

// ErrAllFailed is returned when every container of a non-empty batch failed
var ErrAllFailed = errors.New("no container could be converted")

// predefinedNetworks exist on every engine and are never created by compose
var predefinedNetworks = map[string]bool{"bridge": true, "host": true, "none": true}

// GeneratorOptions controls a generation run
type GeneratorOptions struct {
	// Version is the compose file version; empty uses DefaultVersion
	Version string

	// IncludeSensitive keeps environment variables that look like secrets
	IncludeSensitive bool

	// MaxConcurrency caps in-flight inspections; zero or less is unbounded
	MaxConcurrency int

	// InspectTimeout bounds each inspection; zero disables the timeout
	InspectTimeout time.Duration

	// Defaults fills absent fields of every generated service
	Defaults *types.Service

	// DependsOn sets explicit dependency lists, keyed by service name
	DependsOn map[string][]string
}

// ItemError records why one container was skipped
type ItemError struct {
	// ContainerID is the container that failed
	ContainerID string `json:"container_id" yaml:"container_id"`

	// Name is the container display name, when known
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Err is the failure
	Err error `json:"-" yaml:"-"`
}

// Error implements the error interface
func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", utils.ShortID(e.ContainerID), e.Err)
}

// Unwrap returns the underlying failure
func (e ItemError) Unwrap() error {
	return e.Err
}

// Stats summarizes a generation run
type Stats struct {
	// BatchID identifies the run in log lines
	BatchID string

	// Total is the number of container handles processed
	Total int

	// Succeeded is the number of containers converted to services
	Succeeded int

	// Failed is the number of containers skipped
	Failed int

	// Overwritten counts services replaced by a later container with the same name
	Overwritten int

	// Errors are the per-container failures
	Errors []ItemError
}

// Generator inspects containers concurrently and assembles a compose file
type Generator struct {
	engine    engine.Engine
	converter *converter.ServiceConverter
	cache     *engine.ImageCache
	logger    *logrus.Logger
}

// NewGenerator creates a generator. A nil cache disables image lookup memoization.
func NewGenerator(eng engine.Engine, cache *engine.ImageCache, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}

	return &Generator{
		engine:    eng,
		converter: converter.NewServiceConverter(logger),
		cache:     cache,
		logger:    logger,
	}
}

// itemResult is what a worker hands to the aggregation loop
type itemResult struct {
	handle engine.Handle
	result *converter.ConvertServiceResult
	err    error
}

// Generate inspects and translates every handle, then assembles the results.
// A failed container is recorded in Stats and never aborts the batch. The
// error is ErrAllFailed when handles is non-empty and nothing converted.
func (g *Generator) Generate(ctx context.Context, handles []engine.Handle, options GeneratorOptions) (*types.ComposeFile, *Stats, error) {
	version := options.Version
	if version == "" {
		version = DefaultVersion
	}

	stats := &Stats{BatchID: uuid.New().String(), Total: len(handles)}
	logger := g.logger.WithFields(logrus.Fields{
		"batch_id": stats.BatchID,
		"engine":   g.engine.Name(),
	})
	logger.WithField("containers", len(handles)).Info("Generating compose file")

	results := make(chan itemResult, len(handles))

	go func() {
		var group errgroup.Group
		if options.MaxConcurrency > 0 {
			group.SetLimit(options.MaxConcurrency)
		}
		for _, handle := range handles {
			handle := handle
			group.Go(func() error {
				result, err := g.processOne(ctx, handle, options)
				results <- itemResult{handle: handle, result: result, err: err}
				return nil
			})
		}
		_ = group.Wait()
		close(results)
	}()

	assembler := newAssembler(version)
	for item := range results {
		if item.err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, ItemError{ContainerID: item.handle.ID, Name: item.handle.Name(), Err: item.err})
			logger.WithFields(logrus.Fields{
				"container_id": utils.ShortID(item.handle.ID),
				"name":         item.handle.Name(),
			}).WithError(item.err).Warn("Skipping container")
			continue
		}

		stats.Succeeded++
		if assembler.add(item.result) {
			stats.Overwritten++
			logger.WithField("service", item.result.Name).Warn("Duplicate service name, keeping the last container")
		}
	}

	sort.Slice(stats.Errors, func(i, j int) bool {
		return stats.Errors[i].ContainerID < stats.Errors[j].ContainerID
	})

	logger.WithFields(logrus.Fields{
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
	}).Info("Compose generation finished")

	if stats.Total > 0 && stats.Succeeded == 0 {
		return nil, stats, fmt.Errorf("%w: %d of %d containers failed", ErrAllFailed, stats.Failed, stats.Total)
	}

	file := assembler.file()
	if err := augment(file, options); err != nil {
		return nil, stats, err
	}
	return file, stats, nil
}

// processOne runs inspection and translation for one handle
func (g *Generator) processOne(ctx context.Context, handle engine.Handle, options GeneratorOptions) (*converter.ConvertServiceResult, error) {
	inspectCtx := ctx
	if options.InspectTimeout > 0 {
		var cancel context.CancelFunc
		inspectCtx, cancel = context.WithTimeout(ctx, options.InspectTimeout)
		defer cancel()
	}

	record, err := g.engine.Inspect(inspectCtx, handle)
	if err != nil {
		return nil, err
	}

	result, err := g.converter.Convert(record, converter.ConvertOptions{
		IncludeSensitive: options.IncludeSensitive,
		FallbackName:     utils.ShortID(handle.ID),
	})
	if err != nil {
		return nil, err
	}

	if utils.IsImageHash(result.Service.Image) {
		if ref, ok := g.resolveImage(inspectCtx, result.Service.Image); ok {
			result.Service.Image = ref
		}
	}
	return result, nil
}

// resolveImage looks up a repository tag for an image hash. Failures keep the hash.
func (g *Generator) resolveImage(ctx context.Context, imageID string) (string, bool) {
	if g.cache != nil {
		if ref, ok := g.cache.Get(imageID); ok {
			return ref, true
		}
	}

	ref, err := g.engine.ResolveImage(ctx, imageID)
	if err != nil {
		g.logger.WithField("image", utils.ShortID(imageID)).WithError(err).Debug("Keeping unresolved image hash")
		return "", false
	}

	if g.cache != nil {
		g.cache.Set(imageID, ref)
	}
	return ref, true
}

// assembler merges converted services into one compose file. It is only
// touched by the aggregation loop.
type assembler struct {
	version  string
	services map[string]*types.Service
	networks map[string]types.NetworkConfig
	volumes  map[string]types.VolumeConfig
}

func newAssembler(version string) *assembler {
	return &assembler{
		version:  version,
		services: make(map[string]*types.Service),
		networks: make(map[string]types.NetworkConfig),
		volumes:  make(map[string]types.VolumeConfig),
	}
}

// add registers one service and its resources, reporting whether it replaced
// an existing service of the same name
func (a *assembler) add(result *converter.ConvertServiceResult) bool {
	_, replaced := a.services[result.Name]
	a.services[result.Name] = result.Service

	for _, name := range result.Networks {
		if _, ok := a.networks[name]; ok {
			continue
		}
		if predefinedNetworks[name] {
			a.networks[name] = types.NetworkConfig{External: true}
			continue
		}
		a.networks[name] = types.NetworkConfig{}
	}

	for name, cfg := range result.NetworkConfigs {
		if predefinedNetworks[name] {
			continue
		}
		if existing, ok := a.networks[name]; !ok || existing.IPAM == nil {
			a.networks[name] = cfg
		}
	}

	for _, name := range result.Volumes {
		if _, ok := a.volumes[name]; !ok {
			a.volumes[name] = types.VolumeConfig{}
		}
	}

	return replaced
}

// file returns the assembled compose file with empty resource maps omitted
func (a *assembler) file() *types.ComposeFile {
	file := types.NewComposeFile(a.version)
	file.Services = a.services
	if len(a.networks) > 0 {
		file.Networks = a.networks
	}
	if len(a.volumes) > 0 {
		file.Volumes = a.volumes
	}
	return file
}

// augment applies caller supplied defaults and dependency lists
func augment(file *types.ComposeFile, options GeneratorOptions) error {
	if options.Defaults != nil {
		for name, svc := range file.Services {
			if err := svc.ApplyDefaults(options.Defaults); err != nil {
				return fmt.Errorf("service %s: %w", name, err)
			}
		}
	}

	for name, deps := range options.DependsOn {
		svc, ok := file.Services[name]
		if !ok {
			continue
		}
		svc.DependsOn = types.DependsOnList(deps...)
	}
	return nil
}
