package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Olympus-chain/autocompose/internal/config"
	"github.com/Olympus-chain/autocompose/internal/docker"
	"github.com/Olympus-chain/autocompose/internal/docker/compose"
	"github.com/Olympus-chain/autocompose/internal/docker/compose/validation"
	"github.com/Olympus-chain/autocompose/internal/engine"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// stdoutPath as --output writes the descriptor to standard output
const stdoutPath = "-"

type generateFlags struct {
	output           string
	composeVersion   string
	format           string
	runningOnly      bool
	dryRun           bool
	includeSystem    bool
	includeSensitive bool
	noValidate       bool
	filterNames      []string
	filterImages     []string
	excludeNames     []string
	dockerHost       string
	podmanBinary     string
}

func newEngineCommand(app *App, engineName string) *cobra.Command {
	flags := &generateFlags{}
	title := strings.ToUpper(engineName[:1]) + engineName[1:]

	c := &cobra.Command{
		Use:   engineName,
		Short: fmt.Sprintf("Generate a compose file from %s containers", title),
		Long: fmt.Sprintf(`Inspect %s containers and write a compose file describing them.

Containers whose inspection fails are skipped and reported; the command only
fails when every selected container failed.`, title),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			var eng engine.Engine
			switch engineName {
			case docker.EngineName:
				var closer io.Closer
				eng, closer, err = app.DockerEngine(cfg, flags.dockerHost, app.Logger)
				if err != nil {
					return err
				}
				if closer != nil {
					defer closer.Close()
				}
			default:
				eng, err = app.PodmanEngine(cfg, flags.podmanBinary, app.Logger)
				if err != nil {
					return err
				}
			}

			return app.runGenerate(cmd, eng, cfg, flags)
		},
	}

	c.Flags().StringVarP(&flags.output, "output", "o", "", "output file, '-' for stdout (default from config)")
	c.Flags().StringVar(&flags.composeVersion, "compose-version", "", "compose file version (default from config)")
	c.Flags().StringVar(&flags.format, "format", "", "output format: yaml, json, json-compact or toml (default from config)")
	c.Flags().BoolVar(&flags.runningOnly, "running-only", false, "only include running containers")
	c.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the compose file instead of writing it")
	c.Flags().StringSliceVar(&flags.filterNames, "filter-name", nil, "only include containers whose name matches the regexp")
	c.Flags().StringSliceVar(&flags.filterImages, "filter-image", nil, "only include containers whose image matches the regexp")
	c.Flags().StringSliceVar(&flags.excludeNames, "exclude-name", nil, "exclude containers whose name matches the regexp")
	c.Flags().BoolVar(&flags.includeSystem, "include-system", false, "include system containers")
	c.Flags().BoolVar(&flags.includeSensitive, "include-sensitive", false, "keep environment variables that look like secrets")
	c.Flags().BoolVar(&flags.noValidate, "no-validate", false, "skip validation of the generated file")

	switch engineName {
	case docker.EngineName:
		c.Flags().StringVar(&flags.dockerHost, "docker-host", "", "Docker daemon host (default from config or DOCKER_HOST)")
	default:
		c.Flags().StringVar(&flags.podmanBinary, "podman-binary", "", "podman executable (default from config)")
	}

	return c
}

// filterSpec combines command line selectors with the configured exclusions
func (f *generateFlags) filterSpec(cfg *config.AppConfig) engine.FilterSpec {
	spec := engine.FilterSpec{
		IncludeNames:  append(append([]string{}, cfg.Filters.IncludePatterns...), f.filterNames...),
		ExcludeNames:  append([]string{}, f.excludeNames...),
		IncludeImages: f.filterImages,
	}
	if cfg.Filters.ExcludeSystemContainers && !f.includeSystem {
		spec.ExcludeNames = append(spec.ExcludeNames, cfg.Filters.ExcludePatterns...)
		spec.ExcludeLabels = cfg.Filters.LabelSelectors()
	}
	return spec
}

func (app *App) runGenerate(cmd *cobra.Command, eng engine.Engine, cfg *config.AppConfig, flags *generateFlags) error {
	ctx := cmd.Context()
	logger := app.Logger.WithField("engine", eng.Name())

	format := orDefault(flags.format, cfg.DefaultFormat)
	version := orDefault(flags.composeVersion, cfg.DefaultComposeVersion)
	output := orDefault(flags.output, cfg.DefaultOutput)
	toStdout := flags.dryRun || output == stdoutPath

	filter, err := engine.NewFilter(flags.filterSpec(cfg))
	if err != nil {
		return err
	}

	handles, err := eng.List(ctx, engine.ListOptions{All: !flags.runningOnly, Filter: filter})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}
	if len(handles) == 0 {
		fmt.Fprintln(app.Stdout, "No containers found.")
		return nil
	}
	logger.WithField("containers", len(handles)).Info("Inspecting containers")

	var cache *engine.ImageCache
	if cfg.Performance.CacheImageInfo {
		cache = engine.NewImageCache(cfg.Performance.CacheDuration())
	}

	generator := compose.NewGenerator(eng, cache, app.Logger)
	file, stats, err := generator.Generate(ctx, handles, compose.GeneratorOptions{
		Version:          version,
		IncludeSensitive: flags.includeSensitive,
		MaxConcurrency:   cfg.Performance.Concurrency(),
		InspectTimeout:   cfg.Performance.InspectTimeout,
	})
	if stats != nil {
		for _, itemErr := range stats.Errors {
			logger.WithError(itemErr.Err).WithField("container", orDefault(itemErr.Name, utils.ShortID(itemErr.ContainerID))).Warn("Skipped container")
		}
	}
	if err != nil {
		if errors.Is(err, compose.ErrAllFailed) {
			return &ExitError{Code: ExitFailure, Err: err}
		}
		return err
	}

	data, err := compose.Marshal(file, format)
	if err != nil {
		return err
	}

	if toStdout {
		if _, err := app.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		path, err := utils.ValidateOutputPath(output)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.WithFields(logrus.Fields{
			"path":     path,
			"services": len(file.Services),
			"skipped":  stats.Failed,
		}).Info("Compose file written")
		fmt.Fprintf(app.Stdout, "Generated %d service(s) from %d container(s) into %s\n", len(file.Services), stats.Total, path)
	}

	if flags.noValidate {
		return nil
	}

	options := validationOptions(cfg)
	options.TargetVersion = version
	report := validation.NewValidator(options, app.Logger).Validate(file)
	if len(report.Errors)+len(report.Warnings)+len(report.Suggestions) == 0 {
		return nil
	}

	text, err := validation.FormatReport(report, validation.ReportText)
	if err != nil {
		return err
	}
	reportOut := app.Stdout
	if toStdout {
		reportOut = app.Stderr
	}
	fmt.Fprint(reportOut, text)
	return nil
}

func validationOptions(cfg *config.AppConfig) validation.Options {
	return validation.Options{
		CheckBestPractices:   cfg.Validation.CheckBestPractices,
		WarnOnPrivileged:     cfg.Validation.WarnOnPrivileged,
		WarnOnHostNetwork:    cfg.Validation.WarnOnHostNetwork,
		RequireRestartPolicy: cfg.Validation.RequireRestartPolicy,
		RequireHealthcheck:   cfg.Validation.RequireHealthcheck,
		SchemaCheck:          true,
	}
}
