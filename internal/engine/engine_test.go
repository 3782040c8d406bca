package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &EngineError{Engine: "docker", Op: "inspect", ContainerID: "abc123", Err: cause}

	assert.Equal(t, "docker inspect abc123: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorIs(t, err, cause)

	listErr := &EngineError{Engine: "podman", Op: "list", Err: cause}
	assert.Equal(t, "podman list: connection refused", listErr.Error())
}

func TestHandleName(t *testing.T) {
	assert.Equal(t, "/web", Handle{Names: []string{"/web", "/alias"}}.Name())
	assert.Empty(t, Handle{}.Name())
}

func TestFilter(t *testing.T) {
	handles := []Handle{
		{ID: "1", Names: []string{"/web"}, Image: "nginx:1.25"},
		{ID: "2", Names: []string{"k8s_pod_x"}, Image: "pause:3.9"},
		{ID: "3", Names: []string{"/registry_cache"}, Image: "registry:2"},
		{ID: "4", Names: []string{"/db"}, Image: "postgres:16", Labels: map[string]string{"autocompose.skip": "true"}},
		{ID: "5", Names: []string{"/worker"}, Image: "myapp:1", Labels: map[string]string{"tier": "batch"}},
	}

	testCases := []struct {
		name        string
		spec        FilterSpec
		expectedIDs []string
	}{
		{
			name:        "empty filter keeps everything",
			spec:        FilterSpec{},
			expectedIDs: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:        "exclude system patterns on normalized names",
			spec:        FilterSpec{ExcludeNames: []string{"^/k8s_", "^/registry_"}},
			expectedIDs: []string{"1", "4", "5"},
		},
		{
			name:        "include names",
			spec:        FilterSpec{IncludeNames: []string{"^/(web|db)$"}},
			expectedIDs: []string{"1", "4"},
		},
		{
			name:        "include images",
			spec:        FilterSpec{IncludeImages: []string{"^postgres", "^nginx"}},
			expectedIDs: []string{"1", "4"},
		},
		{
			name:        "exclude label any value",
			spec:        FilterSpec{ExcludeLabels: map[string]string{"autocompose.skip": AnyLabelValue}},
			expectedIDs: []string{"1", "2", "3", "5"},
		},
		{
			name:        "exclude label exact value",
			spec:        FilterSpec{ExcludeLabels: map[string]string{"tier": "web"}},
			expectedIDs: []string{"1", "2", "3", "4", "5"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := NewFilter(tc.spec)
			require.NoError(t, err)

			var ids []string
			for _, h := range filter.Apply(handles) {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	_, err := NewFilter(FilterSpec{IncludeNames: []string{"("}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestNilFilter(t *testing.T) {
	var filter *Filter
	handles := []Handle{{ID: "1"}}
	assert.True(t, filter.Match(handles[0]))
	assert.Equal(t, handles, filter.Apply(handles))
}

func TestImageCache(t *testing.T) {
	cache := NewImageCache(time.Minute)
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	_, ok := cache.Get("sha256:abc")
	assert.False(t, ok)

	cache.Set("sha256:abc", "nginx:1.25")
	value, ok := cache.Get("sha256:abc")
	require.True(t, ok)
	assert.Equal(t, "nginx:1.25", value)

	current = current.Add(2 * time.Minute)
	_, ok = cache.Get("sha256:abc")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	assert.Equal(t, DefaultImageCacheTTL, NewImageCache(0).ttl)
}
