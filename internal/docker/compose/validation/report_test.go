package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Olympus-chain/autocompose/internal/docker/compose"
)

func sampleReport() *Report {
	report := newReport()
	report.addError("", "version", "Invalid compose version: 4.0", ErrorInvalidVersion)
	report.addWarning("web", "image", "Using 'latest' tag is not recommended for production", WarningBestPractice)
	report.addSuggestion("web", "", "Consider something", SuggestionCleanup)
	report.addSuggestion("", "", "Consider defining custom networks for better service isolation", SuggestionSecurity)
	report.Summary = Summary{TotalServices: 2, TotalNetworks: 1, ComposeVersion: "4.0", ValidationTimeMS: 3}
	return report
}

func TestFormatReport_Text(t *testing.T) {
	text, err := FormatReport(sampleReport(), "TEXT")
	require.NoError(t, err)

	expected := "=== Validation Report ===\n" +
		"Status: INVALID\n" +
		"Services: 2\n" +
		"Networks: 1\n" +
		"Volumes: 0\n" +
		"Version: 4.0\n" +
		"Validation time: 3ms\n" +
		"Summary: 1 error(s), 1 warning(s), 2 suggestion(s)\n\n" +
		"ERRORS:\n" +
		"  - [version] Invalid compose version: 4.0\n\n" +
		"WARNINGS:\n" +
		"  - [web:image] Using 'latest' tag is not recommended for production\n\n" +
		"SUGGESTIONS:\n" +
		"  - [web] Consider something\n" +
		"  - Consider defining custom networks for better service isolation\n\n"
	assert.Equal(t, expected, text)
}

func TestFormatReport_TextClean(t *testing.T) {
	report := newReport()
	report.IsValid = true
	report.Summary.ComposeVersion = "3.9"

	text, err := FormatReport(report, ReportText)
	require.NoError(t, err)
	assert.Contains(t, text, "Status: VALID\n")
	assert.NotContains(t, text, "ERRORS:")
	assert.Contains(t, text, "No issues found.\n")
}

func TestFormatReport_Structured(t *testing.T) {
	report := sampleReport()
	report.IsValid = false

	jsonText, err := FormatReport(report, ReportJSON)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(jsonText), &decoded))
	assert.Equal(t, false, decoded["is_valid"])
	errs := decoded["errors"].([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "InvalidVersion", first["error_type"])
	assert.Equal(t, "version", first["field"])
	assert.NotContains(t, first, "service")
	assert.EqualValues(t, 2, decoded["summary"].(map[string]interface{})["total_services"])

	yamlText, err := FormatReport(report, ReportYAML)
	require.NoError(t, err)
	var roundTrip Report
	require.NoError(t, yaml.Unmarshal([]byte(yamlText), &roundTrip))
	assert.Equal(t, *report, roundTrip)
}

func TestFormatReport_EmptyListsRenderAsArrays(t *testing.T) {
	text, err := FormatReport(newReport(), ReportJSON)
	require.NoError(t, err)
	assert.Contains(t, text, `"errors": []`)
	assert.Contains(t, text, `"warnings": []`)
	assert.Contains(t, text, `"suggestions": []`)
}

func TestFormatReport_UnsupportedFormat(t *testing.T) {
	_, err := FormatReport(sampleReport(), "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, compose.ErrUnsupportedFormat)

	var serr *compose.SerializationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "xml", serr.Format)
}

func TestApplyStrict(t *testing.T) {
	testCases := []struct {
		name     string
		valid    bool
		warnings int
		strict   bool
		expected error
	}{
		{name: "clean", valid: true},
		{name: "warnings tolerated", valid: true, warnings: 2},
		{name: "warnings in strict mode", valid: true, warnings: 1, strict: true, expected: ErrStrictWarnings},
		{name: "invalid", valid: false, expected: ErrInvalidDescriptor},
		{name: "invalid wins over strict", valid: false, warnings: 1, strict: true, expected: ErrInvalidDescriptor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := newReport()
			report.IsValid = tc.valid
			if !tc.valid {
				report.addError("svc", "image", "Service must specify an image", ErrorMissingField)
			}
			for i := 0; i < tc.warnings; i++ {
				report.addWarning("svc", "image", "w", WarningBestPractice)
			}

			err := ApplyStrict(report, tc.strict)
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}
