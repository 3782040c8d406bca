package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Olympus-chain/autocompose/internal/docker/compose"
)

// ErrorType categorizes an error finding
type ErrorType string

// Error finding categories
const (
	ErrorSyntax         ErrorType = "SyntaxError"
	ErrorInvalidVersion ErrorType = "InvalidVersion"
	ErrorMissingField   ErrorType = "MissingRequiredField"
	ErrorInvalidValue   ErrorType = "InvalidFieldValue"
	ErrorConflict       ErrorType = "ConflictingConfiguration"
	ErrorUnsupported    ErrorType = "UnsupportedFeature"
)

// WarningType categorizes a warning finding
type WarningType string

// Warning finding categories
const (
	WarningSecurityRisk WarningType = "SecurityRisk"
	WarningPerformance  WarningType = "PerformanceIssue"
	WarningDeprecated   WarningType = "DeprecatedFeature"
	WarningBestPractice WarningType = "BestPracticeViolation"
	WarningPortability  WarningType = "PortabilityIssue"
)

// SuggestionType categorizes a suggestion finding
type SuggestionType string

// Suggestion finding categories
const (
	SuggestionSecurity      SuggestionType = "SecurityImprovement"
	SuggestionPerformance   SuggestionType = "PerformanceOptimization"
	SuggestionBestPractice  SuggestionType = "BestPractice"
	SuggestionModernization SuggestionType = "Modernization"
	SuggestionCleanup       SuggestionType = "Cleanup"
)

// Report formats
const (
	ReportJSON = "json"
	ReportYAML = "yaml"
	ReportText = "text"
)

var (
	// ErrInvalidDescriptor is returned by ApplyStrict when the report has errors
	ErrInvalidDescriptor = errors.New("compose file is invalid")

	// ErrStrictWarnings is returned by ApplyStrict in strict mode when the report has warnings
	ErrStrictWarnings = errors.New("compose file has warnings in strict mode")
)

// Error is a finding that makes a descriptor invalid
type Error struct {
	Service string    `json:"service,omitempty" yaml:"service,omitempty"`
	Field   string    `json:"field,omitempty" yaml:"field,omitempty"`
	Message string    `json:"message" yaml:"message"`
	Type    ErrorType `json:"error_type" yaml:"error_type"`
}

// Warning is a finding about a risky or outdated setting
type Warning struct {
	Service string      `json:"service,omitempty" yaml:"service,omitempty"`
	Field   string      `json:"field,omitempty" yaml:"field,omitempty"`
	Message string      `json:"message" yaml:"message"`
	Type    WarningType `json:"warning_type" yaml:"warning_type"`
}

// Suggestion is a best-practice recommendation
type Suggestion struct {
	Service string         `json:"service,omitempty" yaml:"service,omitempty"`
	Field   string         `json:"field,omitempty" yaml:"field,omitempty"`
	Message string         `json:"message" yaml:"message"`
	Type    SuggestionType `json:"suggestion_type" yaml:"suggestion_type"`
}

// Summary describes the validated descriptor
type Summary struct {
	TotalServices    int    `json:"total_services" yaml:"total_services"`
	TotalNetworks    int    `json:"total_networks" yaml:"total_networks"`
	TotalVolumes     int    `json:"total_volumes" yaml:"total_volumes"`
	ComposeVersion   string `json:"compose_version" yaml:"compose_version"`
	ValidationTimeMS int64  `json:"validation_time_ms" yaml:"validation_time_ms"`
}

// Report is the outcome of a validation run. IsValid is true exactly when
// Errors is empty.
type Report struct {
	IsValid     bool         `json:"is_valid" yaml:"is_valid"`
	Errors      []Error      `json:"errors" yaml:"errors"`
	Warnings    []Warning    `json:"warnings" yaml:"warnings"`
	Suggestions []Suggestion `json:"suggestions" yaml:"suggestions"`
	Summary     Summary      `json:"summary" yaml:"summary"`
}

func newReport() *Report {
	return &Report{
		Errors:      []Error{},
		Warnings:    []Warning{},
		Suggestions: []Suggestion{},
	}
}

func (r *Report) addError(service, field, message string, kind ErrorType) {
	r.Errors = append(r.Errors, Error{Service: service, Field: field, Message: message, Type: kind})
}

func (r *Report) addWarning(service, field, message string, kind WarningType) {
	r.Warnings = append(r.Warnings, Warning{Service: service, Field: field, Message: message, Type: kind})
}

func (r *Report) addSuggestion(service, field, message string, kind SuggestionType) {
	r.Suggestions = append(r.Suggestions, Suggestion{Service: service, Field: field, Message: message, Type: kind})
}

// ApplyStrict maps a report to an error: ErrInvalidDescriptor when it has
// errors, ErrStrictWarnings when strict is set and it has warnings.
func ApplyStrict(report *Report, strict bool) error {
	if !report.IsValid {
		return fmt.Errorf("%w: %d error(s)", ErrInvalidDescriptor, len(report.Errors))
	}
	if strict && len(report.Warnings) > 0 {
		return fmt.Errorf("%w: %d warning(s)", ErrStrictWarnings, len(report.Warnings))
	}
	return nil
}

// FormatReport renders a report as json, yaml or text
func FormatReport(report *Report, format string) (string, error) {
	switch strings.ToLower(format) {
	case ReportJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", &compose.SerializationError{Format: ReportJSON, Op: "encode", Err: err}
		}
		return string(data), nil
	case ReportYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return "", &compose.SerializationError{Format: ReportYAML, Op: "encode", Err: err}
		}
		return string(data), nil
	case ReportText:
		return formatText(report), nil
	default:
		return "", &compose.SerializationError{
			Format: format,
			Op:     "encode",
			Err:    fmt.Errorf("%w: %q", compose.ErrUnsupportedFormat, format),
		}
	}
}

func formatText(report *Report) string {
	var b strings.Builder

	status := "VALID"
	if !report.IsValid {
		status = "INVALID"
	}

	b.WriteString("=== Validation Report ===\n")
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Services: %d\n", report.Summary.TotalServices)
	fmt.Fprintf(&b, "Networks: %d\n", report.Summary.TotalNetworks)
	fmt.Fprintf(&b, "Volumes: %d\n", report.Summary.TotalVolumes)
	fmt.Fprintf(&b, "Version: %s\n", report.Summary.ComposeVersion)
	fmt.Fprintf(&b, "Validation time: %dms\n", report.Summary.ValidationTimeMS)
	fmt.Fprintf(&b, "Summary: %d error(s), %d warning(s), %d suggestion(s)\n\n",
		len(report.Errors), len(report.Warnings), len(report.Suggestions))

	if len(report.Errors) > 0 {
		b.WriteString("ERRORS:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  - %s\n", formatIssue(e.Service, e.Field, e.Message))
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("WARNINGS:\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  - %s\n", formatIssue(w.Service, w.Field, w.Message))
		}
		b.WriteString("\n")
	}

	if len(report.Suggestions) > 0 {
		b.WriteString("SUGGESTIONS:\n")
		for _, s := range report.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", formatIssue(s.Service, s.Field, s.Message))
		}
		b.WriteString("\n")
	}

	if report.IsValid && len(report.Warnings) == 0 && len(report.Suggestions) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}

func formatIssue(service, field, message string) string {
	switch {
	case service != "" && field != "":
		return fmt.Sprintf("[%s:%s] %s", service, field, message)
	case service != "":
		return fmt.Sprintf("[%s] %s", service, message)
	case field != "":
		return fmt.Sprintf("[%s] %s", field, message)
	default:
		return message
	}
}
