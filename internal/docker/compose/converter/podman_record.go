package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PodmanContainer is the typed subset of `podman inspect` output used for
// conversion. Every block is optional so that a missing block can be
// reported instead of silently defaulted.
type PodmanContainer struct {
	ID              string                 `json:"Id"`
	Name            string                 `json:"Name"`
	Image           string                 `json:"Image"`
	ImageName       string                 `json:"ImageName"`
	Config          *PodmanConfig          `json:"Config"`
	HostConfig      *PodmanHostConfig      `json:"HostConfig"`
	NetworkSettings *PodmanNetworkSettings `json:"NetworkSettings"`
	Mounts          []PodmanMount          `json:"Mounts"`
}

// PodmanConfig is the container-level configuration block
type PodmanConfig struct {
	Hostname    string             `json:"Hostname"`
	Env         []string           `json:"Env"`
	Image       string             `json:"Image"`
	Labels      map[string]string  `json:"Labels"`
	Healthcheck *PodmanHealthCheck `json:"Healthcheck"`
	User        string             `json:"User"`
	WorkingDir  string             `json:"WorkingDir"`
	Entrypoint  StringOrSlice      `json:"Entrypoint"`
	Cmd         StringOrSlice      `json:"Cmd"`
	Tty         bool               `json:"Tty"`
	OpenStdin   bool               `json:"OpenStdin"`
}

// PodmanHealthCheck is the health check block; durations may be encoded as
// nanosecond numbers or as strings depending on the Podman version
type PodmanHealthCheck struct {
	Test        []string       `json:"Test"`
	Interval    PodmanDuration `json:"Interval"`
	Timeout     PodmanDuration `json:"Timeout"`
	StartPeriod PodmanDuration `json:"StartPeriod"`
	Retries     int            `json:"Retries"`
}

// PodmanHostConfig is the host-level configuration block
type PodmanHostConfig struct {
	NetworkMode   string              `json:"NetworkMode"`
	RestartPolicy PodmanRestartPolicy `json:"RestartPolicy"`
	DNS           []string            `json:"Dns"`
	DNSSearch     []string            `json:"DnsSearch"`
	ExtraHosts    []string            `json:"ExtraHosts"`
	CapAdd        []string            `json:"CapAdd"`
	CapDrop       []string            `json:"CapDrop"`
	SecurityOpt   []string            `json:"SecurityOpt"`
	Privileged    bool                `json:"Privileged"`
	Init          bool                `json:"Init"`
	LogConfig     *PodmanLogConfig    `json:"LogConfig"`
	Memory        int64               `json:"Memory"`
	NanoCpus      int64               `json:"NanoCpus"`
	CPUQuota      int64               `json:"CpuQuota"`
	CPUPeriod     int64               `json:"CpuPeriod"`
	CpusetCpus    string              `json:"CpusetCpus"`
	Devices       []PodmanDevice      `json:"Devices"`
	Ulimits       []PodmanUlimit      `json:"Ulimits"`
	Sysctls       map[string]string   `json:"Sysctls"`
}

// PodmanRestartPolicy is the restart policy block
type PodmanRestartPolicy struct {
	Name              string `json:"Name"`
	MaximumRetryCount int    `json:"MaximumRetryCount"`
}

// PodmanLogConfig is the logging block
type PodmanLogConfig struct {
	Type   string            `json:"Type"`
	Config map[string]string `json:"Config"`
}

// PodmanDevice is one device mapping
type PodmanDevice struct {
	PathOnHost      string `json:"PathOnHost"`
	PathInContainer string `json:"PathInContainer"`
}

// PodmanUlimit is one resource limit; entries missing any part are ignored
type PodmanUlimit struct {
	Name string `json:"Name"`
	Soft *int64 `json:"Soft"`
	Hard *int64 `json:"Hard"`
}

// PodmanNetworkSettings is the network settings block
type PodmanNetworkSettings struct {
	Ports    map[string][]PodmanPortBinding `json:"Ports"`
	Networks map[string]*PodmanNetwork      `json:"Networks"`
}

// PodmanPortBinding is one host binding of a container port
type PodmanPortBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// PodmanNetwork is one network attachment
type PodmanNetwork struct {
	IPAddress         string `json:"IPAddress"`
	GlobalIPv6Address string `json:"GlobalIPv6Address"`
	Gateway           string `json:"Gateway"`
	IPPrefixLen       int    `json:"IPPrefixLen"`
}

// PodmanMount is one mount
type PodmanMount struct {
	Type        string `json:"Type"`
	Name        string `json:"Name"`
	Source      string `json:"Source"`
	Destination string `json:"Destination"`
	RW          *bool  `json:"RW"`
}

// StringOrSlice accepts either a JSON string or an array of strings
type StringOrSlice []string

// UnmarshalJSON implements json.Unmarshaler
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		if single == "" {
			*s = nil
		} else {
			*s = StringOrSlice{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// PodmanDuration is a duration encoded either as nanoseconds or as text
type PodmanDuration struct {
	NS   int64
	Text string
}

// UnmarshalJSON implements json.Unmarshaler
func (d *PodmanDuration) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*d = PodmanDuration{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*d = PodmanDuration{Text: text}
		return nil
	}
	ns, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", trimmed, err)
	}
	*d = PodmanDuration{NS: ns}
	return nil
}

// String renders the duration for a compose file, or "" when unset
func (d PodmanDuration) String() string {
	if d.Text != "" {
		return NormalizeDuration(d.Text)
	}
	return durationField(d.NS)
}

// ParsePodmanInspect parses the JSON array printed by `podman inspect` and
// returns its first element.
func ParsePodmanInspect(data []byte) (*PodmanContainer, error) {
	var containers []PodmanContainer
	if err := json.Unmarshal(data, &containers); err != nil {
		return nil, fmt.Errorf("failed to parse podman inspect output: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("podman inspect returned no containers")
	}
	return &containers[0], nil
}
