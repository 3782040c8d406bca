// Package validation checks compose descriptors for structural errors,
// risky settings and missed best practices.
package validation

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Olympus-chain/autocompose/internal/docker/compose"
	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// LargeFileThreshold is the service count above which splitting the file is suggested
const LargeFileThreshold = 20

var (
	supportedVersions = map[string]bool{
		"3.0": true, "3.1": true, "3.2": true, "3.3": true, "3.4": true,
		"3.5": true, "3.6": true, "3.7": true, "3.8": true, "3.9": true,
	}

	deprecatedVersions = map[string]bool{
		"3.0": true, "3.1": true, "3.2": true, "3.3": true,
	}

	privilegedCapabilities = []string{"SYS_ADMIN", "ALL"}
)

// IsSupportedVersion reports whether version is an accepted compose file version
func IsSupportedVersion(version string) bool {
	return supportedVersions[version]
}

// IsDeprecatedVersion reports whether version is accepted but deprecated
func IsDeprecatedVersion(version string) bool {
	return deprecatedVersions[version]
}

// Options controls which rules run
type Options struct {
	// CheckBestPractices enables the suggestion rules
	CheckBestPractices bool

	// TargetVersion, when set, warns about files declaring another version
	TargetVersion string

	// WarnOnPrivileged warns about privileged services
	WarnOnPrivileged bool

	// WarnOnHostNetwork warns about services using host networking
	WarnOnHostNetwork bool

	// RequireRestartPolicy turns a missing restart policy into an error
	RequireRestartPolicy bool

	// RequireHealthcheck turns a missing health check into an error
	RequireHealthcheck bool

	// SchemaCheck runs the compose schema pass in ValidateFile
	SchemaCheck bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		CheckBestPractices: true,
		WarnOnPrivileged:   true,
		WarnOnHostNetwork:  true,
		SchemaCheck:        true,
	}
}

// Validator runs the rule set against compose descriptors
type Validator struct {
	options Options
	parser  *compose.Parser
	logger  *logrus.Logger
}

// NewValidator creates a new Validator
func NewValidator(options Options, logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{
		options: options,
		parser:  compose.NewParser(logger),
		logger:  logger,
	}
}

// ValidateFile decodes the compose file at path and validates it. A file that
// cannot be decoded is returned as an error; schema problems found by the
// compose loader are reported as SyntaxError findings.
func (v *Validator) ValidateFile(ctx context.Context, path string) (*Report, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	format := compose.FormatFromPath(path)
	file, err := compose.Unmarshal(data, format)
	if err != nil {
		return nil, err
	}

	var syntax []Error
	if v.options.SchemaCheck {
		// the compose loader reads YAML and JSON only
		if format == compose.FormatTOML {
			if data, err = compose.Marshal(file, compose.FormatYAML); err != nil {
				return nil, err
			}
		}
		syntax = v.schemaFindings(ctx, data, path)
	}

	report := v.validate(file, start)
	if len(syntax) > 0 {
		report.Errors = append(syntax, report.Errors...)
		report.IsValid = false
	}
	return report, nil
}

// Validate checks an in-memory descriptor
func (v *Validator) Validate(file *types.ComposeFile) *Report {
	return v.validate(file, time.Now())
}

func (v *Validator) schemaFindings(ctx context.Context, content []byte, path string) []Error {
	if _, err := v.parser.SchemaCheck(ctx, content, path); err != nil {
		v.logger.WithError(err).WithField("file", path).Debug("Compose schema check reported problems")
		return []Error{{Message: err.Error(), Type: ErrorSyntax}}
	}
	return nil
}

func (v *Validator) validate(file *types.ComposeFile, start time.Time) *Report {
	report := newReport()

	v.checkVersion(file.Version, report)

	names := file.ServiceNames()
	sort.Strings(names)
	for _, name := range names {
		service := file.Services[name]
		if service == nil {
			service = &types.Service{}
		}
		v.checkService(name, service, report)
	}

	if v.options.CheckBestPractices {
		v.checkFileBestPractices(file, report)
	}

	report.IsValid = len(report.Errors) == 0
	report.Summary = Summary{
		TotalServices:    len(file.Services),
		TotalNetworks:    len(file.Networks),
		TotalVolumes:     len(file.Volumes),
		ComposeVersion:   file.Version,
		ValidationTimeMS: time.Since(start).Milliseconds(),
	}

	v.logger.WithFields(logrus.Fields{
		"services":    report.Summary.TotalServices,
		"errors":      len(report.Errors),
		"warnings":    len(report.Warnings),
		"suggestions": len(report.Suggestions),
	}).Debug("Validated compose descriptor")

	return report
}

func (v *Validator) checkVersion(version string, report *Report) {
	if !IsSupportedVersion(version) {
		report.addError("", "version", fmt.Sprintf("Invalid compose version: %s", version), ErrorInvalidVersion)
		return
	}

	if v.options.TargetVersion != "" && version != v.options.TargetVersion {
		report.addWarning("", "version",
			fmt.Sprintf("Version %s differs from target version %s", version, v.options.TargetVersion),
			WarningPortability)
	}

	if IsDeprecatedVersion(version) {
		report.addWarning("", "version", fmt.Sprintf("Compose version %s is deprecated", version), WarningDeprecated)
	}
}

func (v *Validator) checkService(name string, service *types.Service, report *Report) {
	if service.Image == "" {
		report.addError(name, "image", "Service must specify an image", ErrorMissingField)
	} else if utils.UsesLatestTag(service.Image) {
		report.addWarning(name, "image", "Using 'latest' tag is not recommended for production", WarningBestPractice)
	}

	if v.options.WarnOnHostNetwork && service.NetworkMode == "host" {
		report.addWarning(name, "network_mode", "Host networking mode reduces container isolation", WarningSecurityRisk)
	}

	if hasAny(service.CapAdd, privilegedCapabilities) {
		report.addWarning(name, "cap_add", "Adding privileged capabilities poses security risks", WarningSecurityRisk)
	}

	if v.options.WarnOnPrivileged && service.Privileged {
		report.addWarning(name, "privileged", "Privileged mode gives the container full access to the host", WarningSecurityRisk)
	}

	if service.Restart == "" {
		if v.options.RequireRestartPolicy {
			report.addError(name, "restart", "Service must define a restart policy", ErrorMissingField)
		} else if v.options.CheckBestPractices {
			report.addSuggestion(name, "restart", "Consider adding a restart policy for better resilience", SuggestionBestPractice)
		}
	}

	if service.HealthCheck == nil {
		if v.options.RequireHealthcheck {
			report.addError(name, "healthcheck", "Service must define a healthcheck", ErrorMissingField)
		} else if v.options.CheckBestPractices {
			report.addSuggestion(name, "healthcheck", "Consider adding a healthcheck for better monitoring", SuggestionBestPractice)
		}
	}

	if !v.options.CheckBestPractices {
		return
	}

	for _, port := range service.Ports {
		if strings.HasPrefix(port, "0.0.0.0:") {
			report.addSuggestion(name, "ports", "Binding to 0.0.0.0 exposes ports to all interfaces", SuggestionSecurity)
			break
		}
	}

	for _, volume := range service.Volumes {
		if isBindMount(volume) && !isReadOnly(volume) {
			report.addSuggestion(name, "volumes", "Consider making bind mounts read-only when possible", SuggestionSecurity)
			break
		}
	}

	if deploy := service.Deploy; deploy != nil && deploy.Resources != nil && deploy.Resources.Limits != nil {
		if deploy.Resources.Limits.Memory == "" {
			report.addSuggestion(name, "deploy.resources.limits.memory",
				"Consider setting memory limits to prevent resource exhaustion", SuggestionPerformance)
		}
	}
}

func (v *Validator) checkFileBestPractices(file *types.ComposeFile, report *Report) {
	count := len(file.Services)

	if count > LargeFileThreshold {
		report.addSuggestion("", "", "Consider splitting large compose files into smaller, more manageable files", SuggestionBestPractice)
	}

	unlabeled := 0
	for _, service := range file.Services {
		if service == nil || len(service.Labels) == 0 {
			unlabeled++
		}
	}
	if count > 1 && unlabeled > count/2 {
		report.addSuggestion("", "", "Consider adding descriptive labels to services for better organization", SuggestionBestPractice)
	}

	if count > 1 && len(file.Networks) == 0 {
		report.addSuggestion("", "", "Consider defining custom networks for better service isolation", SuggestionSecurity)
	}
}

// isBindMount reports whether a volume spec mounts a host path
func isBindMount(spec string) bool {
	source, _, found := strings.Cut(spec, ":")
	if !found {
		return false
	}
	return strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~")
}

func isReadOnly(spec string) bool {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return false
	}
	for _, option := range strings.Split(parts[len(parts)-1], ",") {
		if option == "ro" {
			return true
		}
	}
	return false
}

func hasAny(values, wanted []string) bool {
	for _, value := range values {
		for _, w := range wanted {
			if strings.EqualFold(value, w) {
				return true
			}
		}
	}
	return false
}
