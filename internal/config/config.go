package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// AppName is the configuration directory name
	AppName = "autocompose"

	// FileName is the configuration file name
	FileName = "config.toml"

	// EnvPrefix prefixes environment overrides, e.g. AUTOCOMPOSE_LOG_LEVEL
	EnvPrefix = "AUTOCOMPOSE"
)

var (
	// ErrConfigExists is returned by Init when a configuration file is already present
	ErrConfigExists = errors.New("configuration file already exists")

	// ErrUnknownKey is returned by Set for keys that are not part of the configuration
	ErrUnknownKey = errors.New("unknown configuration key")

	// ErrInvalidValue is returned by Set when a value cannot be converted to the key's type
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrInvalidConfig is returned when a configuration fails validation
	ErrInvalidConfig = errors.New("invalid configuration")
)

var validate = newValidate()

// AppConfig holds the persisted user preferences
type AppConfig struct {
	// DefaultOutput is the file generated descriptors are written to
	DefaultOutput string `mapstructure:"default_output" validate:"required"`

	// DefaultComposeVersion is the version written into generated descriptors
	DefaultComposeVersion string `mapstructure:"default_compose_version" validate:"oneof=3.0 3.1 3.2 3.3 3.4 3.5 3.6 3.7 3.8 3.9"`

	// DefaultFormat is the output encoding
	DefaultFormat string `mapstructure:"default_format" validate:"oneof=yaml json json-compact toml"`

	// LogLevel is the logrus level name
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`

	Filters     FilterConfig      `mapstructure:"filters"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Docker      DockerConfig      `mapstructure:"docker"`
	Podman      PodmanConfig      `mapstructure:"podman"`
}

// FilterConfig selects which containers are translated
type FilterConfig struct {
	// ExcludeSystemContainers applies ExcludePatterns and ExcludeLabels
	ExcludeSystemContainers bool `mapstructure:"exclude_system_containers"`

	// ExcludePatterns are name regexps of containers to skip
	ExcludePatterns []string `mapstructure:"exclude_patterns" validate:"dive,regexp"`

	// IncludePatterns, when set, restrict the run to matching names
	IncludePatterns []string `mapstructure:"include_patterns" validate:"dive,regexp"`

	// ExcludeLabels are "key=value" selectors; a value of "*" matches any value
	ExcludeLabels []string `mapstructure:"exclude_labels" validate:"dive,required"`
}

// ValidationConfig controls the validator rules
type ValidationConfig struct {
	CheckBestPractices   bool `mapstructure:"check_best_practices"`
	WarnOnPrivileged     bool `mapstructure:"warn_on_privileged"`
	WarnOnHostNetwork    bool `mapstructure:"warn_on_host_network"`
	RequireRestartPolicy bool `mapstructure:"require_restart_policy"`
	RequireHealthcheck   bool `mapstructure:"require_healthcheck"`
}

// PerformanceConfig tunes container inspection
type PerformanceConfig struct {
	// ParallelProcessing inspects containers concurrently; false inspects one at a time
	ParallelProcessing bool `mapstructure:"parallel_processing"`

	// MaxConcurrentContainers caps in-flight inspections
	MaxConcurrentContainers int `mapstructure:"max_concurrent_containers" validate:"min=1,max=256"`

	// InspectTimeout bounds a single inspection
	InspectTimeout time.Duration `mapstructure:"inspect_timeout" validate:"min=1s"`

	// InspectRateLimit is the engine call rate per second; 0 is unlimited
	InspectRateLimit float64 `mapstructure:"inspect_rate_limit" validate:"min=0"`

	// CacheImageInfo caches image hash resolutions
	CacheImageInfo bool `mapstructure:"cache_image_info"`

	// CacheDurationMinutes is the image cache lifetime
	CacheDurationMinutes int `mapstructure:"cache_duration_minutes" validate:"min=1"`
}

// DockerConfig describes the Docker daemon connection
type DockerConfig struct {
	Host       string `mapstructure:"host"`
	TLSVerify  bool   `mapstructure:"tls_verify"`
	CertPath   string `mapstructure:"cert_path" validate:"required_if=TLSVerify true"`
	APIVersion string `mapstructure:"api_version"`
}

// PodmanConfig describes the podman binary
type PodmanConfig struct {
	Binary string `mapstructure:"binary" validate:"required"`
}

// LabelSelectors parses ExcludeLabels into a key to value map
func (f FilterConfig) LabelSelectors() map[string]string {
	if len(f.ExcludeLabels) == 0 {
		return nil
	}
	selectors := make(map[string]string, len(f.ExcludeLabels))
	for _, entry := range f.ExcludeLabels {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			value = "*"
		}
		selectors[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return selectors
}

// CacheDuration returns the image cache lifetime
func (p PerformanceConfig) CacheDuration() time.Duration {
	return time.Duration(p.CacheDurationMinutes) * time.Minute
}

// Concurrency returns the inspection concurrency cap
func (p PerformanceConfig) Concurrency() int {
	if !p.ParallelProcessing {
		return 1
	}
	return p.MaxConcurrentContainers
}

// defaultSettings is the flat key space of the configuration
func defaultSettings() map[string]interface{} {
	return map[string]interface{}{
		"default_output":          "docker-compose.yml",
		"default_compose_version": "3.9",
		"default_format":          "yaml",
		"log_level":               "info",

		"filters.exclude_system_containers": true,
		"filters.exclude_patterns":          []string{"^/k8s_", "^/registry_"},
		"filters.include_patterns":          []string{},
		"filters.exclude_labels":            []string{"io.kubernetes.container.name=*"},

		"validation.check_best_practices":   true,
		"validation.warn_on_privileged":     true,
		"validation.warn_on_host_network":   true,
		"validation.require_restart_policy": false,
		"validation.require_healthcheck":    false,

		"performance.parallel_processing":       true,
		"performance.max_concurrent_containers": 10,
		"performance.inspect_timeout":           "30s",
		"performance.inspect_rate_limit":        0.0,
		"performance.cache_image_info":          true,
		"performance.cache_duration_minutes":    60,

		"docker.host":        "",
		"docker.tls_verify":  false,
		"docker.cert_path":   "",
		"docker.api_version": "",

		"podman.binary": "podman",
	}
}

// Keys lists every configuration key in sorted order
func Keys() []string {
	defaults := defaultSettings()
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// DefaultPath returns $XDG_CONFIG_HOME/autocompose/config.toml or its platform equivalent
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, AppName, FileName), nil
}

// Manager loads and persists the configuration file
type Manager struct {
	path string
	v    *viper.Viper
	log  *logrus.Logger
	mu   sync.Mutex
}

// NewManager creates a Manager for the file at path; an empty path selects DefaultPath
func NewManager(path string, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	return &Manager{
		path: path,
		v:    viper.New(),
		log:  logger,
	}, nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.path
}

// Load reads defaults, then the configuration file if present, then
// AUTOCOMPOSE_* environment overrides, and validates the result
func (m *Manager) Load() (*AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (*AppConfig, error) {
	m.v = viper.New()
	setDefaults(m.v)

	if err := m.loadConfigFile(); err != nil {
		return nil, err
	}
	loadEnvVars(m.v)

	var config AppConfig
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save validates config and writes it to the configuration file
func (m *Manager) Save(config *AppConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(config)
}

func (m *Manager) save(config *AppConfig) error {
	if err := validateConfig(config); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := viper.New()
	for key, value := range config.settings() {
		out.Set(key, value)
	}
	if err := out.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.log.WithField("path", m.path).Debug("Configuration saved")
	return nil
}

// Init writes the default configuration. An existing file is kept unless force is set.
func (m *Manager) Init(force bool) (*AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fileExists(m.path) && !force {
		return nil, fmt.Errorf("%w: %s", ErrConfigExists, m.path)
	}
	config := Defaults()
	if err := m.save(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Reset overwrites the configuration file with the defaults
func (m *Manager) Reset() (*AppConfig, error) {
	return m.Init(true)
}

// Set converts value to the type of key, applies it on top of the current
// configuration and saves the result
func (m *Manager) Set(key, value string) (*AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key = strings.ToLower(strings.TrimSpace(key))
	def, ok := defaultSettings()[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	parsed, err := parseValue(key, def, value)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}

	if _, err := m.load(); err != nil {
		return nil, err
	}
	m.v.Set(key, parsed)

	var config AppConfig
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := m.save(&config); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"key": key, "value": value}).Debug("Configuration value updated")
	return &config, nil
}

// Show renders config as TOML
func Show(config *AppConfig) (string, error) {
	data, err := toml.Marshal(config.tree())
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(data), nil
}

// Defaults returns the built-in configuration
func Defaults() *AppConfig {
	v := viper.New()
	setDefaults(v)
	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	return &config
}

// settings flattens config into viper keys
func (c *AppConfig) settings() map[string]interface{} {
	return map[string]interface{}{
		"default_output":          c.DefaultOutput,
		"default_compose_version": c.DefaultComposeVersion,
		"default_format":          c.DefaultFormat,
		"log_level":               c.LogLevel,

		"filters.exclude_system_containers": c.Filters.ExcludeSystemContainers,
		"filters.exclude_patterns":          nonNil(c.Filters.ExcludePatterns),
		"filters.include_patterns":          nonNil(c.Filters.IncludePatterns),
		"filters.exclude_labels":            nonNil(c.Filters.ExcludeLabels),

		"validation.check_best_practices":   c.Validation.CheckBestPractices,
		"validation.warn_on_privileged":     c.Validation.WarnOnPrivileged,
		"validation.warn_on_host_network":   c.Validation.WarnOnHostNetwork,
		"validation.require_restart_policy": c.Validation.RequireRestartPolicy,
		"validation.require_healthcheck":    c.Validation.RequireHealthcheck,

		"performance.parallel_processing":       c.Performance.ParallelProcessing,
		"performance.max_concurrent_containers": c.Performance.MaxConcurrentContainers,
		"performance.inspect_timeout":           c.Performance.InspectTimeout.String(),
		"performance.inspect_rate_limit":        c.Performance.InspectRateLimit,
		"performance.cache_image_info":          c.Performance.CacheImageInfo,
		"performance.cache_duration_minutes":    c.Performance.CacheDurationMinutes,

		"docker.host":        c.Docker.Host,
		"docker.tls_verify":  c.Docker.TLSVerify,
		"docker.cert_path":   c.Docker.CertPath,
		"docker.api_version": c.Docker.APIVersion,

		"podman.binary": c.Podman.Binary,
	}
}

// tree nests the flat settings by section
func (c *AppConfig) tree() map[string]interface{} {
	tree := map[string]interface{}{}
	for key, value := range c.settings() {
		section, name, nested := strings.Cut(key, ".")
		if !nested {
			tree[key] = value
			continue
		}
		table, ok := tree[section].(map[string]interface{})
		if !ok {
			table = map[string]interface{}{}
			tree[section] = table
		}
		table[name] = value
	}
	return tree
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}
}

// loadConfigFile loads the configuration file; a missing file is not an error
func (m *Manager) loadConfigFile() error {
	if !fileExists(m.path) {
		m.log.WithField("path", m.path).Debug("No configuration file, using defaults")
		return nil
	}

	m.v.SetConfigFile(m.path)
	m.v.SetConfigType("toml")
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", m.path, err)
	}
	return nil
}

// loadEnvVars binds AUTOCOMPOSE_* environment variables
func loadEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ValidationResult holds validation results
type ValidationResult struct {
	Errors []ValidationError
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	return v
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	result := ValidationResult{
		Errors: []ValidationError{},
	}

	if err := validate.Struct(config); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range fieldErrors {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: fieldMessage(fe),
			})
		}
	}

	if len(result.Errors) > 0 {
		var errMsgs []string
		for _, err := range result.Errors {
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errMsgs, "; "))
	}

	return nil
}

// fieldPath turns "AppConfig.performance.inspect_timeout" into "performance.inspect_timeout"
func fieldPath(namespace string) string {
	if _, rest, found := strings.Cut(namespace, "."); found {
		return rest
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when TLS verification is enabled"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "regexp":
		return fmt.Sprintf("invalid pattern %q", fe.Value())
	default:
		return fmt.Sprintf("failed validation: %s=%s", fe.Tag(), fe.Param())
	}
}

func parseValue(key string, def interface{}, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch def.(type) {
	case bool:
		return strconv.ParseBool(raw)
	case int:
		return strconv.Atoi(raw)
	case float64:
		return strconv.ParseFloat(raw, 64)
	case []string:
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		if strings.HasSuffix(key, "_timeout") {
			if _, err := time.ParseDuration(raw); err != nil {
				return nil, err
			}
		}
		return raw, nil
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
