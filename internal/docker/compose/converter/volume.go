package converter

import (
	"sort"
	"strings"
)

// MountInput is the engine-neutral view of one mount
type MountInput struct {
	Type        string
	Name        string
	Source      string
	Destination string
	ReadOnly    bool
}

// NamedVolumeFromBind returns the volume name of a bind spec whose source is
// not a path, e.g. "data:/var/lib/data" gives "data".
func NamedVolumeFromBind(bind string) (string, bool) {
	parts := strings.Split(bind, ":")
	if len(parts) < 2 || parts[0] == "" {
		return "", false
	}
	if strings.HasPrefix(parts[0], "/") || strings.HasPrefix(parts[0], ".") || strings.HasPrefix(parts[0], "~") {
		return "", false
	}
	return parts[0], true
}

// ConvertBinds keeps every bind spec verbatim and returns the named volumes
// they reference.
func ConvertBinds(binds []string) ([]string, []string) {
	if len(binds) == 0 {
		return nil, nil
	}
	volumes := make([]string, 0, len(binds))
	var named []string
	for _, bind := range binds {
		volumes = append(volumes, bind)
		if name, ok := NamedVolumeFromBind(bind); ok {
			named = append(named, name)
		}
	}
	return volumes, dedupe(named)
}

// ConvertMounts renders mounts as volume specs. Tmpfs mounts render as
// "tmpfs:<dst>", named volumes use their volume name as the source and are
// returned for descriptor-level registration.
func ConvertMounts(mounts []MountInput) ([]string, []string) {
	var volumes, named []string
	for _, mount := range mounts {
		if mount.Destination == "" {
			continue
		}
		var spec string
		switch mount.Type {
		case "tmpfs":
			spec = "tmpfs:" + mount.Destination
		case "volume":
			source := mount.Name
			if source == "" {
				source = mount.Source
			} else {
				named = append(named, mount.Name)
			}
			spec = source + ":" + mount.Destination
		default:
			if mount.Source == "" {
				continue
			}
			spec = mount.Source + ":" + mount.Destination
		}
		if mount.ReadOnly && mount.Type != "tmpfs" {
			spec += ":ro"
		}
		volumes = append(volumes, spec)
	}
	return volumes, dedupe(named)
}

// dedupe returns the sorted unique entries of list
func dedupe(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
