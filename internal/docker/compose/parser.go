package compose

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"github.com/sirupsen/logrus"
)

// schemaProjectName is the nominal project name handed to the compose loader
const schemaProjectName = "autocompose"

// Parser checks compose documents against the compose specification schema
type Parser struct {
	logger *logrus.Logger
}

// NewParser creates a new Parser
func NewParser(logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.New()
	}
	return &Parser{logger: logger}
}

// SchemaCheck loads content with compose-go, which validates it against the
// compose schema and checks cross references. Content must be YAML or JSON.
// The process environment is not consulted for interpolation.
func (p *Parser) SchemaCheck(ctx context.Context, content []byte, path string) (*composetypes.Project, error) {
	workingDir := "."
	filename := "docker-compose.yml"
	if path != "" {
		workingDir = filepath.Dir(path)
		filename = filepath.Base(path)
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}

	details := composetypes.ConfigDetails{
		WorkingDir: workingDir,
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: filename, Content: content},
		},
		Environment: map[string]string{},
	}

	p.logger.WithFields(logrus.Fields{
		"file":        filename,
		"working_dir": workingDir,
		"bytes":       len(content),
	}).Debug("Running compose schema check")

	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(schemaProjectName, true)
		o.SkipValidation = false
		o.ResolvePaths = false
	})
	if err != nil {
		if strings.Contains(err.Error(), "yaml:") {
			return nil, fmt.Errorf("failed to parse compose YAML structure: %w", err)
		}
		return nil, fmt.Errorf("compose schema check failed: %w", err)
	}
	return project, nil
}
