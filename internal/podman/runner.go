// Package podman realizes the container engine boundary by driving the podman CLI
package podman

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// DefaultBinary is the podman executable looked up on PATH
const DefaultBinary = "podman"

// ErrBinaryNotFound indicates the podman executable is not installed
var ErrBinaryNotFound = errors.New("podman binary not found")

// Runner executes a podman subcommand and returns its standard output
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs podman as a child process. Arguments are passed directly
// to the executable and never interpreted by a shell.
type ExecRunner struct {
	// Binary is the podman executable; empty uses DefaultBinary
	Binary string
}

// Run executes the podman subcommand
func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.Wrapf(ErrBinaryNotFound, "%s", binary)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "podman command cancelled")
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "podman %s: %s", args[0], msg)
		}
		return nil, errors.Wrapf(err, "podman %s", args[0])
	}

	return stdout.Bytes(), nil
}
