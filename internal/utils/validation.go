package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxContainerIDLength is the longest accepted container ID
	MaxContainerIDLength = 64

	// MaxImageIDLength is the longest accepted image reference
	MaxImageIDLength = 256
)

var (
	containerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	imageIDRegex     = regexp.MustCompile(`^[a-zA-Z0-9./:_@-]+$`)

	// forbiddenOutputDirs are system locations compose files are never written to
	forbiddenOutputDirs = []string{"/etc", "/sys", "/proc", "/boot", "/dev"}
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContainerID checks that id is a plausible engine container ID
// before it is passed to an external command.
func ValidateContainerID(id string) error {
	if id == "" {
		return &ValidationError{Field: "containerID", Code: "REQUIRED", Message: "Container ID is required"}
	}
	if len(id) > MaxContainerIDLength {
		return &ValidationError{
			Field:   "containerID",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Container ID exceeds maximum length of %d", MaxContainerIDLength),
			Value:   id,
		}
	}
	if !containerIDRegex.MatchString(id) {
		return &ValidationError{
			Field:   "containerID",
			Code:    "INVALID_FORMAT",
			Message: "Container ID must be alphanumeric",
			Value:   id,
		}
	}
	return nil
}

// ValidateImageID checks that ref is a plausible image ID or reference
func ValidateImageID(ref string) error {
	if ref == "" {
		return &ValidationError{Field: "imageID", Code: "REQUIRED", Message: "Image ID is required"}
	}
	if len(ref) > MaxImageIDLength {
		return &ValidationError{
			Field:   "imageID",
			Code:    "TOO_LONG",
			Message: fmt.Sprintf("Image ID exceeds maximum length of %d", MaxImageIDLength),
			Value:   ref,
		}
	}
	if !imageIDRegex.MatchString(ref) {
		return &ValidationError{
			Field:   "imageID",
			Code:    "INVALID_FORMAT",
			Message: "Image ID contains invalid characters",
			Value:   ref,
		}
	}
	return nil
}

// ValidateOutputPath resolves path and rejects locations under system
// directories. It returns the cleaned absolute path.
func ValidateOutputPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ValidationError{Field: "output", Code: "REQUIRED", Message: "Output path is required"}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ValidationError{Field: "output", Code: "INVALID_PATH", Message: err.Error(), Value: path}
	}

	candidates := []string{abs}
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		candidates = append(candidates, filepath.Join(parent, filepath.Base(abs)))
	}

	for _, candidate := range candidates {
		for _, dir := range forbiddenOutputDirs {
			if candidate == dir || strings.HasPrefix(candidate, dir+string(filepath.Separator)) {
				return "", &ValidationError{
					Field:   "output",
					Code:    "FORBIDDEN_PATH",
					Message: fmt.Sprintf("Cannot write to system directory %s", dir),
					Value:   path,
				}
			}
		}
	}

	return abs, nil
}
