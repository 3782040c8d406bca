// Package converter translates inspected Docker and Podman containers into compose services
package converter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600

	// ipv4Wildcard is the host address that binds every interface
	ipv4Wildcard = "0.0.0.0"

	// ipv6Wildcard bindings duplicate their IPv4 counterpart and are dropped
	ipv6Wildcard = "::"
)

var (
	// sensitiveEnvPatterns are matched case-insensitively as substrings of variable names
	sensitiveEnvPatterns = []string{
		"PASSWORD",
		"SECRET",
		"TOKEN",
		"API_KEY",
		"PRIVATE_KEY",
		"ACCESS_KEY",
		"CREDENTIALS",
		"AUTH",
		"MYSQL_ROOT_PASSWORD",
		"POSTGRES_PASSWORD",
		"REDIS_PASSWORD",
		"MONGODB_PASSWORD",
		"RABBITMQ_PASSWORD",
		"AWS_SECRET",
		"GITHUB_TOKEN",
		"DOCKER_PASSWORD",
		"NPM_TOKEN",
	}

	// systemLabelPrefixes mark labels written by image builders and engines
	systemLabelPrefixes = []string{
		"io.buildah.",
		"org.opencontainers.",
		"io.podman.",
		"com.docker.",
	}
)

// IsSensitiveEnvKey reports whether an environment variable name looks like a secret
func IsSensitiveEnvKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ParseEnvironment converts KEY=VALUE entries into a map. Entries without an
// equals sign are discarded, "KEY=" keeps an empty value, and sensitive keys are removed unless includeSensitive
// is set. It returns nil when nothing remains.
func ParseEnvironment(env []string, includeSensitive bool) map[string]string {
	result := make(map[string]string)
	for _, entry := range env {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			continue
		}
		result[key] = value
	}
	if !includeSensitive {
		return FilterSensitiveEnv(result)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// FilterSensitiveEnv returns a copy of env without sensitive keys, or nil when empty
func FilterSensitiveEnv(env map[string]string) map[string]string {
	filtered := make(map[string]string, len(env))
	for key, value := range env {
		if !IsSensitiveEnvKey(key) {
			filtered[key] = value
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// ConvertPortBindings renders published ports as compose short syntax.
// Bindings without a host port or on the IPv6 wildcard are dropped.
func ConvertPortBindings(ports nat.PortMap) []string {
	keys := make([]nat.Port, 0, len(ports))
	for port := range ports {
		keys = append(keys, port)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Int() != keys[j].Int() {
			return keys[i].Int() < keys[j].Int()
		}
		return keys[i].Proto() < keys[j].Proto()
	})

	var result []string
	for _, port := range keys {
		containerPort := port.Port()
		if proto := port.Proto(); proto != "" && proto != "tcp" {
			containerPort = containerPort + "/" + proto
		}
		for _, binding := range ports[port] {
			mapping, ok := formatPortBinding(binding.HostIP, binding.HostPort, containerPort)
			if ok {
				result = append(result, mapping)
			}
		}
	}
	return result
}

func formatPortBinding(hostIP, hostPort, containerPort string) (string, bool) {
	if hostPort == "" || hostIP == ipv6Wildcard {
		return "", false
	}
	if hostIP == "" || hostIP == ipv4Wildcard {
		return fmt.Sprintf("%s:%s", hostPort, containerPort), true
	}
	return fmt.Sprintf("%s:%s:%s", hostIP, hostPort, containerPort), true
}

// ConvertRestartPolicy maps an engine restart policy to compose vocabulary:
// always, unless-stopped, on-failure[:N] or no. Unknown policies map to no.
func ConvertRestartPolicy(name string, maxRetries int) string {
	switch name {
	case "always":
		return "always"
	case "unless-stopped":
		return "unless-stopped"
	case "on-failure":
		if maxRetries > 0 {
			return "on-failure:" + strconv.Itoa(maxRetries)
		}
		return "on-failure"
	default:
		return "no"
	}
}

// restartField returns the restart policy as a service field; the engine
// default "no" is treated as not configured.
func restartField(name string, maxRetries int) string {
	policy := ConvertRestartPolicy(name, maxRetries)
	if policy == "no" {
		return ""
	}
	return policy
}

// FormatMemory renders a byte count as whole megabytes, e.g. "512M"
func FormatMemory(bytes int64) string {
	return fmt.Sprintf("%dM", bytes/units.MiB)
}

// FormatCPUs renders a quota/period pair as a fractional CPU count
func FormatCPUs(quota, period int64) string {
	return fmt.Sprintf("%.2f", float64(quota)/float64(period))
}

// DeployInput holds the resource settings a deploy block is built from
type DeployInput struct {
	Memory     int64
	CPUQuota   int64
	CPUPeriod  int64
	NanoCPUs   int64
	CpusetCpus string
}

// ConvertDeploy builds a deploy block, or nil when nothing is constrained
func ConvertDeploy(in DeployInput) *types.Deploy {
	limits := &types.ResourceLimits{}
	if in.Memory >= units.MiB {
		limits.Memory = FormatMemory(in.Memory)
	}
	switch {
	case in.CPUQuota > 0 && in.CPUPeriod > 0:
		limits.CPUs = FormatCPUs(in.CPUQuota, in.CPUPeriod)
	case in.NanoCPUs > 0:
		limits.CPUs = FormatCPUs(in.NanoCPUs, int64(time.Second))
	}

	deploy := &types.Deploy{}
	if limits.Memory != "" || limits.CPUs != "" {
		deploy.Resources = &types.Resources{Limits: limits}
	}
	if in.CpusetCpus != "" {
		deploy.Placement = &types.Placement{
			Constraints: []string{"node.labels.cpus == " + in.CpusetCpus},
		}
	}

	if deploy.Resources == nil && deploy.Placement == nil {
		return nil
	}
	return deploy
}

// NormalizeDurationNS renders a nanosecond duration in the largest unit that
// applies: seconds below a minute, minutes below an hour, hours otherwise.
// Remainders are truncated, so 90 minutes renders as "1h".
func NormalizeDurationNS(ns int64) string {
	seconds := ns / int64(time.Second)
	switch {
	case seconds < secondsPerMinute:
		return fmt.Sprintf("%ds", seconds)
	case seconds < secondsPerHour:
		return fmt.Sprintf("%dm", seconds/secondsPerMinute)
	default:
		return fmt.Sprintf("%dh", seconds/secondsPerHour)
	}
}

// NormalizeDuration normalizes a duration string carrying an "ns" suffix and
// returns any other value unchanged.
func NormalizeDuration(value string) string {
	if digits, ok := strings.CutSuffix(value, "ns"); ok {
		if ns, err := strconv.ParseInt(digits, 10, 64); err == nil {
			return NormalizeDurationNS(ns)
		}
	}
	return value
}

// durationField renders a duration for a service field; zero means unset
func durationField(ns int64) string {
	if ns <= 0 {
		return ""
	}
	return NormalizeDurationNS(ns)
}

// FilterSystemLabels drops labels written by builders and engines and returns
// nil when nothing remains.
func FilterSystemLabels(labels map[string]string) map[string]string {
	filtered := make(map[string]string, len(labels))
	for key, value := range labels {
		if !hasSystemPrefix(key) {
			filtered[key] = value
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func hasSystemPrefix(key string) bool {
	for _, prefix := range systemLabelPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// FormatDevice renders a device mapping as host:container[:permissions]
func FormatDevice(host, container, permissions string) string {
	if container == "" {
		container = host
	}
	if permissions == "" {
		return host + ":" + container
	}
	return host + ":" + container + ":" + permissions
}

// nonEmpty returns list, or nil when it has no entries
func nonEmpty(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return list
}

// copyMap returns a copy of m, or nil when it has no entries
func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
