package compose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
)

// Supported descriptor encodings
const (
	FormatYAML        = "yaml"
	FormatYML         = "yml"
	FormatJSON        = "json"
	FormatJSONCompact = "json-compact"
	FormatTOML        = "toml"
)

// ErrUnsupportedFormat is returned for an unknown encoding name
var ErrUnsupportedFormat = errors.New("unsupported format")

// SerializationError describes a failed encode or decode
type SerializationError struct {
	Format string
	Op     string
	Err    error
}

// Error implements the error interface
func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Format, e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *SerializationError) Unwrap() error {
	return e.Err
}

func unsupported(format, op string) error {
	return &SerializationError{Format: format, Op: op, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)}
}

// Marshal encodes a compose file in the given format
func Marshal(file *types.ComposeFile, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatYAML, FormatYML, "":
		data, err := marshalYAML(file)
		if err != nil {
			return nil, &SerializationError{Format: FormatYAML, Op: "encode", Err: err}
		}
		return data, nil
	case FormatJSON:
		data, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			return nil, &SerializationError{Format: FormatJSON, Op: "encode", Err: err}
		}
		return append(data, '\n'), nil
	case FormatJSONCompact:
		data, err := json.Marshal(file)
		if err != nil {
			return nil, &SerializationError{Format: FormatJSONCompact, Op: "encode", Err: err}
		}
		return data, nil
	case FormatTOML:
		data, err := marshalTOML(file)
		if err != nil {
			return nil, &SerializationError{Format: FormatTOML, Op: "encode", Err: err}
		}
		return data, nil
	default:
		return nil, unsupported(format, "encode")
	}
}

// Unmarshal decodes a compose file from the given format
func Unmarshal(data []byte, format string) (*types.ComposeFile, error) {
	var file types.ComposeFile

	switch strings.ToLower(format) {
	case FormatYAML, FormatYML, "":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &SerializationError{Format: FormatYAML, Op: "decode", Err: err}
		}
	case FormatJSON, FormatJSONCompact:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, &SerializationError{Format: FormatJSON, Op: "decode", Err: err}
		}
	case FormatTOML:
		if err := unmarshalTOML(data, &file); err != nil {
			return nil, &SerializationError{Format: FormatTOML, Op: "decode", Err: err}
		}
	default:
		return nil, unsupported(format, "decode")
	}

	return &file, nil
}

// FormatFromPath picks the encoding from a file extension; anything that is
// not .json or .toml is treated as YAML
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// LoadFile reads and decodes a compose file, choosing the format by extension
func LoadFile(path string) (*types.ComposeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	return Unmarshal(data, FormatFromPath(path))
}

func marshalYAML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// marshalTOML goes through a generic tree so that the custom YAML marshalers
// (such as the service networks union) shape the TOML document too
func marshalTOML(v interface{}) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return toml.Marshal(tree)
}

func unmarshalTOML(data []byte, v interface{}) error {
	var tree map[string]interface{}
	if err := toml.Unmarshal(data, &tree); err != nil {
		return err
	}
	intermediate, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(intermediate, v)
}
