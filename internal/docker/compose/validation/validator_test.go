package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olympus-chain/autocompose/internal/docker/compose"
	"github.com/Olympus-chain/autocompose/internal/docker/compose/converter"
	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func fileWith(version string, services map[string]*types.Service) *types.ComposeFile {
	file := types.NewComposeFile(version)
	for name, service := range services {
		file.Services[name] = service
	}
	return file
}

func TestValidator_LatestTagScenario(t *testing.T) {
	file := fileWith("3.9", map[string]*types.Service{
		"web": {Image: "nginx:latest"},
	})

	report := NewValidator(DefaultOptions(), quietLogger()).Validate(file)

	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, Warning{Service: "web", Field: "image",
		Message: "Using 'latest' tag is not recommended for production", Type: WarningBestPractice}, report.Warnings[0])

	require.Len(t, report.Suggestions, 2)
	assert.Equal(t, "restart", report.Suggestions[0].Field)
	assert.Equal(t, "healthcheck", report.Suggestions[1].Field)
	for _, s := range report.Suggestions {
		assert.Equal(t, "web", s.Service)
		assert.Equal(t, SuggestionBestPractice, s.Type)
	}

	assert.Equal(t, Summary{TotalServices: 1, ComposeVersion: "3.9", ValidationTimeMS: report.Summary.ValidationTimeMS}, report.Summary)
}

func TestValidator_IsValidTracksErrors(t *testing.T) {
	testCases := []struct {
		name       string
		file       *types.ComposeFile
		errorCount int
	}{
		{
			name:       "no errors",
			file:       fileWith("3.8", map[string]*types.Service{"app": {Image: "app:1.0"}}),
			errorCount: 0,
		},
		{
			name:       "unsupported version",
			file:       fileWith("4.0", map[string]*types.Service{"app": {Image: "app:1.0"}}),
			errorCount: 1,
		},
		{
			name: "several structural errors",
			file: fileWith("2.4", map[string]*types.Service{
				"a": {},
				"b": {Image: ""},
				"c": {Image: "c:1"},
			}),
			errorCount: 3,
		},
	}

	validator := NewValidator(DefaultOptions(), quietLogger())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := validator.Validate(tc.file)
			assert.Len(t, report.Errors, tc.errorCount)
			assert.Equal(t, tc.errorCount == 0, report.IsValid)
		})
	}
}

func TestValidator_VersionRules(t *testing.T) {
	testCases := []struct {
		name     string
		version  string
		target   string
		errors   []ErrorType
		warnings []WarningType
	}{
		{name: "current", version: "3.9"},
		{name: "deprecated", version: "3.1", warnings: []WarningType{WarningDeprecated}},
		{name: "differs from target", version: "3.8", target: "3.9", warnings: []WarningType{WarningPortability}},
		{name: "deprecated and differs", version: "3.0", target: "3.9", warnings: []WarningType{WarningPortability, WarningDeprecated}},
		{name: "invalid skips other version checks", version: "latest", target: "3.9", errors: []ErrorType{ErrorInvalidVersion}},
		{name: "empty", version: "", errors: []ErrorType{ErrorInvalidVersion}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options := Options{TargetVersion: tc.target}
			report := NewValidator(options, quietLogger()).Validate(fileWith(tc.version, nil))

			var errs []ErrorType
			for _, e := range report.Errors {
				assert.Equal(t, "version", e.Field)
				errs = append(errs, e.Type)
			}
			var warnings []WarningType
			for _, w := range report.Warnings {
				assert.Equal(t, "version", w.Field)
				warnings = append(warnings, w.Type)
			}
			assert.Equal(t, tc.errors, errs)
			assert.Equal(t, tc.warnings, warnings)
		})
	}
}

func TestValidator_ServiceWarnings(t *testing.T) {
	testCases := []struct {
		name    string
		service *types.Service
		options Options
		fields  []string
	}{
		{
			name:    "pinned tag",
			service: &types.Service{Image: "nginx:1.25"},
			options: DefaultOptions(),
		},
		{
			name:    "implicit latest is not flagged",
			service: &types.Service{Image: "nginx"},
			options: DefaultOptions(),
		},
		{
			name:    "host network",
			service: &types.Service{Image: "nginx:1.25", NetworkMode: "host"},
			options: DefaultOptions(),
			fields:  []string{"network_mode"},
		},
		{
			name:    "host network allowed by config",
			service: &types.Service{Image: "nginx:1.25", NetworkMode: "host"},
			options: Options{},
		},
		{
			name:    "sys admin capability",
			service: &types.Service{Image: "nginx:1.25", CapAdd: []string{"NET_ADMIN", "SYS_ADMIN"}},
			options: Options{},
			fields:  []string{"cap_add"},
		},
		{
			name:    "all capabilities",
			service: &types.Service{Image: "nginx:1.25", CapAdd: []string{"ALL"}},
			options: Options{},
			fields:  []string{"cap_add"},
		},
		{
			name:    "privileged",
			service: &types.Service{Image: "nginx:1.25", Privileged: true},
			options: DefaultOptions(),
			fields:  []string{"privileged"},
		},
		{
			name:    "everything",
			service: &types.Service{Image: "registry.local/app:latest", NetworkMode: "host", CapAdd: []string{"ALL"}, Privileged: true},
			options: DefaultOptions(),
			fields:  []string{"image", "network_mode", "cap_add", "privileged"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := NewValidator(tc.options, quietLogger()).Validate(fileWith("3.9", map[string]*types.Service{"svc": tc.service}))

			var fields []string
			for _, w := range report.Warnings {
				fields = append(fields, w.Field)
			}
			assert.Equal(t, tc.fields, fields)
			assert.True(t, report.IsValid)
		})
	}
}

func TestValidator_ServiceSuggestions(t *testing.T) {
	base := func() *types.Service {
		return &types.Service{
			Image:       "app:1.0",
			Restart:     "always",
			HealthCheck: &types.HealthCheck{Test: []string{"CMD", "true"}},
		}
	}

	testCases := []struct {
		name   string
		mutate func(*types.Service)
		fields []string
	}{
		{name: "complete service", mutate: func(*types.Service) {}},
		{
			name:   "wildcard port binding",
			mutate: func(s *types.Service) { s.Ports = []string{"127.0.0.1:80:80", "0.0.0.0:443:443", "0.0.0.0:8443:8443"} },
			fields: []string{"ports"},
		},
		{
			name:   "writable bind mount",
			mutate: func(s *types.Service) { s.Volumes = []string{"/srv/data:/data", "./conf:/conf"} },
			fields: []string{"volumes"},
		},
		{
			name:   "read-only bind mount",
			mutate: func(s *types.Service) { s.Volumes = []string{"/srv/data:/data:ro", "/etc/tz:/etc/tz:ro,z"} },
		},
		{
			name:   "named volume",
			mutate: func(s *types.Service) { s.Volumes = []string{"data:/data"} },
		},
		{
			name: "limits without memory",
			mutate: func(s *types.Service) {
				s.Deploy = &types.Deploy{Resources: &types.Resources{Limits: &types.ResourceLimits{CPUs: "0.50"}}}
			},
			fields: []string{"deploy.resources.limits.memory"},
		},
		{
			name: "limits with memory",
			mutate: func(s *types.Service) {
				s.Deploy = &types.Deploy{Resources: &types.Resources{Limits: &types.ResourceLimits{Memory: "512M"}}}
			},
		},
		{
			name:   "missing restart and healthcheck",
			mutate: func(s *types.Service) { s.Restart = ""; s.HealthCheck = nil },
			fields: []string{"restart", "healthcheck"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service := base()
			tc.mutate(service)

			report := NewValidator(DefaultOptions(), quietLogger()).Validate(fileWith("3.9", map[string]*types.Service{"svc": service}))

			var fields []string
			for _, s := range report.Suggestions {
				fields = append(fields, s.Field)
			}
			assert.Equal(t, tc.fields, fields)
		})
	}
}

func TestValidator_BestPracticesDisabled(t *testing.T) {
	file := fileWith("3.9", map[string]*types.Service{
		"a": {Image: "a:1", Ports: []string{"0.0.0.0:80:80"}, Volumes: []string{"/data:/data"}},
		"b": {Image: "b:1"},
	})

	report := NewValidator(Options{}, quietLogger()).Validate(file)
	assert.Empty(t, report.Suggestions)
	assert.True(t, report.IsValid)
}

func TestValidator_RequiredPolicies(t *testing.T) {
	options := DefaultOptions()
	options.RequireRestartPolicy = true
	options.RequireHealthcheck = true

	report := NewValidator(options, quietLogger()).Validate(fileWith("3.9", map[string]*types.Service{
		"svc": {Image: "app:1.0"},
	}))

	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, Error{Service: "svc", Field: "restart", Message: "Service must define a restart policy", Type: ErrorMissingField}, report.Errors[0])
	assert.Equal(t, "healthcheck", report.Errors[1].Field)
	assert.Empty(t, report.Suggestions)
}

func TestValidator_FileBestPractices(t *testing.T) {
	labeled := func(image string) *types.Service {
		return &types.Service{
			Image:       image,
			Restart:     "always",
			HealthCheck: &types.HealthCheck{Test: []string{"NONE"}},
			Labels:      map[string]string{"team": "core"},
		}
	}
	unlabeled := func(image string) *types.Service {
		service := labeled(image)
		service.Labels = nil
		return service
	}

	t.Run("two unlabeled services without networks", func(t *testing.T) {
		file := fileWith("3.9", map[string]*types.Service{"a": unlabeled("a:1"), "b": unlabeled("b:1")})
		report := NewValidator(DefaultOptions(), quietLogger()).Validate(file)

		require.Len(t, report.Suggestions, 2)
		assert.Contains(t, report.Suggestions[0].Message, "labels")
		assert.Contains(t, report.Suggestions[1].Message, "custom networks")
		assert.Equal(t, SuggestionSecurity, report.Suggestions[1].Type)
		assert.Empty(t, report.Suggestions[0].Service)
	})

	t.Run("labeled services with networks", func(t *testing.T) {
		file := fileWith("3.9", map[string]*types.Service{"a": labeled("a:1"), "b": unlabeled("b:1")})
		file.Networks = map[string]types.NetworkConfig{"backend": {}}
		report := NewValidator(DefaultOptions(), quietLogger()).Validate(file)
		assert.Empty(t, report.Suggestions)
	})

	t.Run("large file", func(t *testing.T) {
		services := map[string]*types.Service{}
		for i := 0; i <= LargeFileThreshold; i++ {
			services[string(rune('a'+i))] = labeled("img:1")
		}
		file := fileWith("3.9", services)
		file.Networks = map[string]types.NetworkConfig{"backend": {}}
		report := NewValidator(DefaultOptions(), quietLogger()).Validate(file)

		require.Len(t, report.Suggestions, 1)
		assert.Contains(t, report.Suggestions[0].Message, "splitting")
		assert.Equal(t, LargeFileThreshold+1, report.Summary.TotalServices)
	})
}

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	validator := NewValidator(DefaultOptions(), quietLogger())

	t.Run("valid yaml", func(t *testing.T) {
		path := write("valid.yml", "version: \"3.9\"\nservices:\n  web:\n    image: nginx:latest\n")
		report, err := validator.ValidateFile(context.Background(), path)
		require.NoError(t, err)
		assert.True(t, report.IsValid)
		assert.Len(t, report.Warnings, 1)
		assert.Len(t, report.Suggestions, 2)
	})

	t.Run("toml is schema checked through yaml", func(t *testing.T) {
		file := fileWith("3.9", map[string]*types.Service{"web": {Image: "nginx:1.25", Restart: "always"}})
		data, err := compose.Marshal(file, compose.FormatTOML)
		require.NoError(t, err)
		path := write("compose.toml", string(data))

		report, err := validator.ValidateFile(context.Background(), path)
		require.NoError(t, err)
		assert.True(t, report.IsValid)
		assert.Equal(t, 1, report.Summary.TotalServices)
	})

	t.Run("schema violation becomes a syntax finding", func(t *testing.T) {
		path := write("unknown.yml", "version: \"3.9\"\nservices:\n  web:\n    image: nginx:1.25\n    not_a_field: true\n")
		report, err := validator.ValidateFile(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, report.IsValid)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, ErrorSyntax, report.Errors[0].Type)
		assert.Contains(t, report.Errors[0].Message, "not_a_field")
	})

	t.Run("schema pass disabled", func(t *testing.T) {
		path := write("unknown-noschema.yml", "version: \"3.9\"\nservices:\n  web:\n    image: nginx:1.25\n    not_a_field: true\n")
		report, err := NewValidator(Options{}, quietLogger()).ValidateFile(context.Background(), path)
		require.NoError(t, err)
		assert.True(t, report.IsValid)
	})

	t.Run("malformed input is a serialization error", func(t *testing.T) {
		path := write("broken.yml", "services: [unclosed\n")
		_, err := validator.ValidateFile(context.Background(), path)
		var serr *compose.SerializationError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := validator.ValidateFile(context.Background(), filepath.Join(dir, "absent.yml"))
		assert.Error(t, err)
	})
}

func TestValidator_HostModeContainerWarns(t *testing.T) {
	record := container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:         "0123456789abcdef",
			Name:       "/agent",
			HostConfig: &container.HostConfig{NetworkMode: "host"},
		},
		Config: &container.Config{Image: "datadog/agent:7"},
		NetworkSettings: &container.NetworkSettings{
			Networks: map[string]*network.EndpointSettings{"host": {}},
		},
	}

	result, err := converter.NewServiceConverter(quietLogger()).ConvertDocker(record, converter.ConvertOptions{})
	require.NoError(t, err)

	report := NewValidator(DefaultOptions(), quietLogger()).Validate(fileWith("3.9", map[string]*types.Service{
		result.Name: result.Service,
	}))

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, Warning{
		Service: "agent",
		Field:   "network_mode",
		Message: "Host networking mode reduces container isolation",
		Type:    WarningSecurityRisk,
	}, report.Warnings[0])
}
