/*
Package cmd provides the autocompose command line interface.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Olympus-chain/autocompose/internal/config"
	"github.com/Olympus-chain/autocompose/internal/docker"
	"github.com/Olympus-chain/autocompose/internal/engine"
	"github.com/Olympus-chain/autocompose/internal/podman"
)

// Process exit codes
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitWarnings = 2
)

// ExitError carries a process exit code
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExitError) Unwrap() error {
	return e.Err
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// DockerFactory builds the Docker engine. The closer releases the client connection.
type DockerFactory func(cfg *config.AppConfig, host string, logger *logrus.Logger) (engine.Engine, io.Closer, error)

// PodmanFactory builds the Podman engine
type PodmanFactory func(cfg *config.AppConfig, binary string, logger *logrus.Logger) (engine.Engine, error)

// App holds the collaborators shared by every command
type App struct {
	// Stdout receives command output
	Stdout io.Writer

	// Stderr receives logs and diagnostics
	Stderr io.Writer

	// Logger is the root logger; nil builds one on Stderr
	Logger *logrus.Logger

	// DockerEngine builds the Docker engine; nil uses the Docker API
	DockerEngine DockerFactory

	// PodmanEngine builds the Podman engine; nil runs the podman binary
	PodmanEngine PodmanFactory

	// Build is reported by --version
	Build BuildInfo

	configPath string
	logLevel   string
	verbose    bool
	manager    *config.Manager
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(app.Stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	fmt.Fprintf(app.Stderr, "Error: %v\n", err)
	return ExitFailure
}

// NewRootCommand builds the command tree
func NewRootCommand(app *App) *cobra.Command {
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.DockerEngine == nil {
		app.DockerEngine = newDockerEngine
	}
	if app.PodmanEngine == nil {
		app.PodmanEngine = newPodmanEngine
	}

	rootCmd := &cobra.Command{
		Use:   "autocompose",
		Short: "Generate compose files from running containers",
		Long: `autocompose inspects Docker or Podman containers and writes a compose
file that recreates them, then checks the result for common mistakes.

Example:
  autocompose docker                      # all Docker containers to docker-compose.yml
  autocompose podman --running-only -o -  # running Podman containers
  autocompose validate docker-compose.yml --strict`,
		Version:       fmt.Sprintf("%s (%s) built on %s", orDefault(app.Build.Version, "dev"), orDefault(app.Build.Commit, "none"), orDefault(app.Build.BuildDate, "unknown")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.initLogger()
			manager, err := config.NewManager(app.configPath, app.Logger)
			if err != nil {
				return err
			}
			app.manager = manager
			return nil
		},
	}
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/autocompose/config.toml)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newEngineCommand(app, docker.EngineName))
	rootCmd.AddCommand(newEngineCommand(app, podman.EngineName))
	rootCmd.AddCommand(newValidateCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// initLogger initializes and configures the logger
func (app *App) initLogger() {
	if app.Logger == nil {
		app.Logger = logrus.New()
		app.Logger.SetOutput(app.Stderr)
		app.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level := logrus.InfoLevel
	if parsed, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = parsed
	}
	app.Logger.SetLevel(level)
	app.applyLevelFlags()
}

// applyLevelFlags lets --log-level and --verbose win over any other source
func (app *App) applyLevelFlags() {
	if app.verbose {
		app.Logger.SetLevel(logrus.DebugLevel)
	}
	if app.logLevel != "" {
		if parsed, err := logrus.ParseLevel(app.logLevel); err == nil {
			app.Logger.SetLevel(parsed)
		} else {
			app.Logger.WithField("level", app.logLevel).Warn("Unknown log level, ignoring")
		}
	}
}

// loadConfig loads the configuration and applies its log level unless LOG_LEVEL or a flag overrides it
func (app *App) loadConfig() (*config.AppConfig, error) {
	cfg, err := app.manager.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("LOG_LEVEL") == "" {
		if parsed, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			app.Logger.SetLevel(parsed)
		}
		app.applyLevelFlags()
	}

	app.Logger.WithFields(logrus.Fields{
		"path":  app.manager.Path(),
		"level": app.Logger.GetLevel().String(),
	}).Debug("Configuration loaded")
	return cfg, nil
}

func newDockerEngine(cfg *config.AppConfig, host string, logger *logrus.Logger) (engine.Engine, io.Closer, error) {
	if host == "" {
		host = cfg.Docker.Host
	}

	opts := []docker.ClientOption{
		docker.WithHost(host),
		docker.WithTLS(cfg.Docker.TLSVerify, cfg.Docker.CertPath),
		docker.WithLogger(logger),
	}
	if cfg.Docker.APIVersion != "" {
		opts = append(opts, docker.WithAPIVersion(cfg.Docker.APIVersion))
	}

	manager, err := docker.NewManager(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure Docker client: %w", err)
	}

	eng := docker.NewEngine(manager, docker.EngineOptions{
		RateLimit: cfg.Performance.InspectRateLimit,
		Logger:    logger,
	})
	return eng, manager, nil
}

func newPodmanEngine(cfg *config.AppConfig, binary string, logger *logrus.Logger) (engine.Engine, error) {
	if binary == "" {
		binary = cfg.Podman.Binary
	}
	return podman.NewEngine(podman.ExecRunner{Binary: binary}, podman.EngineOptions{
		RateLimit: cfg.Performance.InspectRateLimit,
		Logger:    logger,
	}), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
