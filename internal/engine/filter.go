package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// AnyLabelValue matches every value of a label in ExcludeLabels
const AnyLabelValue = "*"

// Filter selects containers by name, image and labels. Names are matched in
// their slash-prefixed form ("/web") regardless of engine.
type Filter struct {
	// IncludeNames keeps only containers whose name matches one of the patterns
	IncludeNames []*regexp.Regexp

	// ExcludeNames drops containers whose name matches one of the patterns
	ExcludeNames []*regexp.Regexp

	// IncludeImages keeps only containers whose image matches one of the patterns
	IncludeImages []*regexp.Regexp

	// ExcludeLabels drops containers carrying one of the labels
	ExcludeLabels map[string]string
}

// FilterSpec is the string form of a Filter, as found in configuration and flags
type FilterSpec struct {
	IncludeNames  []string
	ExcludeNames  []string
	IncludeImages []string
	ExcludeLabels map[string]string
}

// NewFilter compiles a filter spec
func NewFilter(spec FilterSpec) (*Filter, error) {
	includeNames, err := compileAll(spec.IncludeNames)
	if err != nil {
		return nil, err
	}
	excludeNames, err := compileAll(spec.ExcludeNames)
	if err != nil {
		return nil, err
	}
	includeImages, err := compileAll(spec.IncludeImages)
	if err != nil {
		return nil, err
	}

	return &Filter{
		IncludeNames:  includeNames,
		ExcludeNames:  excludeNames,
		IncludeImages: includeImages,
		ExcludeLabels: spec.ExcludeLabels,
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Match reports whether the handle passes the filter
func (f *Filter) Match(h Handle) bool {
	if f == nil {
		return true
	}

	name := "/" + strings.TrimLeft(h.Name(), "/")

	if len(f.IncludeNames) > 0 && !matchAny(f.IncludeNames, name) {
		return false
	}
	if matchAny(f.ExcludeNames, name) {
		return false
	}
	if len(f.IncludeImages) > 0 && !matchAny(f.IncludeImages, h.Image) {
		return false
	}
	for key, value := range f.ExcludeLabels {
		if actual, ok := h.Labels[key]; ok && (value == AnyLabelValue || value == actual) {
			return false
		}
	}
	return true
}

// Apply returns the handles that pass the filter, preserving order
func (f *Filter) Apply(handles []Handle) []Handle {
	if f == nil {
		return handles
	}
	kept := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if f.Match(h) {
			kept = append(kept, h)
		}
	}
	return kept
}

func matchAny(patterns []*regexp.Regexp, value string) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
