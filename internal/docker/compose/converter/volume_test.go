package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedVolumeFromBind(t *testing.T) {
	testCases := []struct {
		bind     string
		expected string
		named    bool
	}{
		{bind: "data:/var/lib/data", expected: "data", named: true},
		{bind: "cache:/cache:ro", expected: "cache", named: true},
		{bind: "/srv/app:/app", named: false},
		{bind: "./relative:/app", named: false},
		{bind: "~/home:/home", named: false},
		{bind: "justapath", named: false},
		{bind: ":/missing", named: false},
	}

	for _, tc := range testCases {
		t.Run(tc.bind, func(t *testing.T) {
			name, ok := NamedVolumeFromBind(tc.bind)
			assert.Equal(t, tc.named, ok)
			assert.Equal(t, tc.expected, name)
		})
	}
}

func TestConvertBinds(t *testing.T) {
	volumes, named := ConvertBinds([]string{"data:/data", "/etc/app:/etc/app:ro", "data:/backup", "logs:/logs"})

	assert.Equal(t, []string{"data:/data", "/etc/app:/etc/app:ro", "data:/backup", "logs:/logs"}, volumes)
	assert.Equal(t, []string{"data", "logs"}, named)

	volumes, named = ConvertBinds(nil)
	assert.Nil(t, volumes)
	assert.Nil(t, named)
}

func TestConvertMounts(t *testing.T) {
	mounts := []MountInput{
		{Type: "volume", Name: "pgdata", Source: "/var/lib/containers/storage/volumes/pgdata/_data", Destination: "/var/lib/postgresql/data"},
		{Type: "bind", Source: "/srv/conf", Destination: "/etc/conf", ReadOnly: true},
		{Type: "tmpfs", Source: "tmpfs", Destination: "/run", ReadOnly: true},
		{Type: "bind", Source: "", Destination: "/ignored"},
		{Type: "bind", Source: "/srv/x", Destination: ""},
	}

	volumes, named := ConvertMounts(mounts)

	assert.Equal(t, []string{
		"pgdata:/var/lib/postgresql/data",
		"/srv/conf:/etc/conf:ro",
		"tmpfs:/run",
	}, volumes)
	assert.Equal(t, []string{"pgdata"}, named)
}
