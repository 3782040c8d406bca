package podman

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/converter"
	"github.com/Olympus-chain/autocompose/internal/engine"
)

const testContainerID = "9b1c3f5e7a2d4c6b8e0f1a3c5e7b9d1f3a5c7e9b1d3f5a7c9e1b3d5f7a9c1e3b"

func newTestEngine(runner Runner) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewEngine(runner, EngineOptions{Logger: logger})
}

func TestEngine_List(t *testing.T) {
	psOutput := []byte(`[
  {"Id": "aaa", "Names": ["web"], "Image": "docker.io/library/nginx:1.25", "Labels": {"tier": "frontend"}, "State": "running"},
  {"Id": "bbb", "Names": ["registry_mirror"], "Image": "docker.io/library/registry:2", "Labels": null, "State": "exited"}
]`)

	testCases := []struct {
		name        string
		opts        engine.ListOptions
		args        []string
		output      []byte
		expectedIDs []string
	}{
		{
			name:        "running only",
			args:        []string{"ps", "--format", "json"},
			output:      psOutput,
			expectedIDs: []string{"aaa", "bbb"},
		},
		{
			name:        "all with filter",
			opts:        engine.ListOptions{All: true, Filter: mustFilter(t, engine.FilterSpec{ExcludeNames: []string{"^/registry_"}})},
			args:        []string{"ps", "-a", "--format", "json"},
			output:      psOutput,
			expectedIDs: []string{"aaa"},
		},
		{
			name:        "empty output",
			args:        []string{"ps", "--format", "json"},
			output:      []byte("\n"),
			expectedIDs: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("Run", mock.Anything, tc.args).Return(tc.output, nil)

			handles, err := newTestEngine(runner).List(context.Background(), tc.opts)
			require.NoError(t, err)

			var ids []string
			for _, h := range handles {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
			runner.AssertExpectations(t)
		})
	}
}

func mustFilter(t *testing.T, spec engine.FilterSpec) *engine.Filter {
	filter, err := engine.NewFilter(spec)
	require.NoError(t, err)
	return filter
}

func TestEngine_ListErrors(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, []string{"ps", "--format", "json"}).Return([]byte("not json"), nil).Once()

	_, err := newTestEngine(runner).List(context.Background(), engine.ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse podman ps output")

	runner = new(MockRunner)
	runner.On("Run", mock.Anything, []string{"ps", "--format", "json"}).Return(nil, errors.New("exit status 125"))

	_, err = newTestEngine(runner).List(context.Background(), engine.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrEngine)
}

func TestEngine_Inspect(t *testing.T) {
	inspectOutput := []byte(`[{"Id": "` + testContainerID + `", "Name": "db", "ImageName": "postgres:16", "HostConfig": {}, "NetworkSettings": {}}]`)

	runner := new(MockRunner)
	runner.On("Run", mock.Anything, []string{"inspect", "--type", "container", testContainerID}).Return(inspectOutput, nil)

	record, err := newTestEngine(runner).Inspect(context.Background(), engine.Handle{ID: testContainerID})
	require.NoError(t, err)

	info, ok := record.(*converter.PodmanContainer)
	require.True(t, ok)
	assert.Equal(t, "db", info.Name)
	assert.Equal(t, "postgres:16", info.ImageName)
}

func TestEngine_InspectRejectsInvalidID(t *testing.T) {
	runner := new(MockRunner)

	_, err := newTestEngine(runner).Inspect(context.Background(), engine.Handle{ID: "--format={{.}}"})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrEngine)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestEngine_InspectEmptyResult(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, []string{"inspect", "--type", "container", testContainerID}).Return([]byte(`[]`), nil)

	_, err := newTestEngine(runner).Inspect(context.Background(), engine.Handle{ID: testContainerID})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrEngine)
}

func TestEngine_ResolveImage(t *testing.T) {
	imageID := "3f57d9401f8d42f986df300f0c69192fc41da28ccc8d797829467780db3dd741"

	testCases := []struct {
		name          string
		output        []byte
		expected      string
		errorContains string
	}{
		{
			name:     "repo tag",
			output:   []byte(`[{"Id": "3f57", "RepoTags": ["docker.io/library/postgres:16"]}]`),
			expected: "postgres:16",
		},
		{
			name:          "untagged",
			output:        []byte(`[{"Id": "3f57", "RepoTags": []}]`),
			errorContains: "no repository tags",
		},
		{
			name:          "garbage",
			output:        []byte(`{`),
			errorContains: "failed to parse",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("Run", mock.Anything, []string{"image", "inspect", imageID}).Return(tc.output, nil)

			ref, err := newTestEngine(runner).ResolveImage(context.Background(), imageID)
			if tc.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ref)
		})
	}
}

func TestExecRunner(t *testing.T) {
	_, err := ExecRunner{Binary: "autocompose-no-such-podman"}.Run(context.Background(), "ps")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBinaryNotFound)

	dir := t.TempDir()
	script := filepath.Join(dir, "fakepodman")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nif [ \"$1\" = ps ]; then echo '[]'; exit 0; fi\necho \"unknown command $1\" >&2\nexit 125\n"), 0o755))

	out, err := ExecRunner{Binary: script}.Run(context.Background(), "ps", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))

	_, err = ExecRunner{Binary: script}.Run(context.Background(), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command bogus")
}
