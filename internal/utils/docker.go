package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/distribution/reference"
)

const (
	// ImageHashLength is the length of a bare hex image ID
	ImageHashLength = 64

	// ShortIDLength is the length of an abbreviated container ID
	ShortIDLength = 12

	// DefaultServiceName is used when a container carries no usable name
	DefaultServiceName = "service"
)

var (
	serviceNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	imageHashRegex   = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// SanitizeServiceName strips leading slashes from a container name and
// replaces every character outside [A-Za-z0-9_-] with an underscore.
func SanitizeServiceName(name string) string {
	return serviceNameRegex.ReplaceAllString(strings.TrimLeft(name, "/"), "_")
}

// ServiceNameFromNames derives a service name from the first container name,
// falling back to fallback and then to DefaultServiceName.
func ServiceNameFromNames(names []string, fallback string) string {
	for _, name := range names {
		if sanitized := SanitizeServiceName(name); sanitized != "" {
			return sanitized
		}
		break
	}
	if fallback != "" {
		return SanitizeServiceName(fallback)
	}
	return DefaultServiceName
}

// ShortID returns the abbreviated form of a container ID
func ShortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// IsImageHash reports whether ref is a bare 64 character lowercase hex image ID,
// optionally prefixed with "sha256:".
func IsImageHash(ref string) bool {
	return imageHashRegex.MatchString(strings.TrimPrefix(ref, "sha256:"))
}

// ParseImageName parses an image reference into its normalized named form
func ParseImageName(ref string) (reference.Named, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image name '%s': %w", ref, err)
	}
	return named, nil
}

// ImageTag returns the tag of an image reference and whether it was given
// explicitly. References that cannot be parsed fall back to splitting on
// the last colon after the last slash.
func ImageTag(ref string) (string, bool) {
	if named, err := ParseImageName(ref); err == nil {
		if tagged, ok := named.(reference.Tagged); ok {
			return tagged.Tag(), true
		}
		return "", false
	}

	lastSlash := strings.LastIndex(ref, "/")
	if idx := strings.LastIndex(ref, ":"); idx > lastSlash {
		return ref[idx+1:], true
	}
	return "", false
}

// UsesLatestTag reports whether ref explicitly pins the "latest" tag
func UsesLatestTag(ref string) bool {
	tag, explicit := ImageTag(ref)
	return explicit && tag == "latest"
}

// FamiliarImageName renders a repository tag in its short form, e.g.
// "docker.io/library/nginx:1.25" becomes "nginx:1.25".
func FamiliarImageName(ref string) string {
	named, err := ParseImageName(ref)
	if err != nil {
		return ref
	}
	return reference.FamiliarString(named)
}
