package types

import (
	"encoding/json"
	"fmt"
	"reflect"

	"dario.cat/mergo"
)

// Service represents one deployable unit of a compose file.
// A field is set only when it carries non-default content.
type Service struct {
	// Image is the image reference
	Image string `yaml:"image" json:"image"`

	// ContainerName is the container display name
	ContainerName string `yaml:"container_name,omitempty" json:"container_name,omitempty"`

	// Hostname is the container hostname
	Hostname string `yaml:"hostname,omitempty" json:"hostname,omitempty"`

	// Environment is the environment variable mapping
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`

	// Ports is the list of published port mappings
	Ports PortList `yaml:"ports,omitempty" json:"ports,omitempty"`

	// Volumes is the list of volume and bind mappings
	Volumes []string `yaml:"volumes,omitempty" json:"volumes,omitempty"`

	// Networks is the set of network attachments
	Networks *ServiceNetworks `yaml:"networks,omitempty" json:"networks,omitempty"`

	// NetworkMode is the network mode override
	NetworkMode string `yaml:"network_mode,omitempty" json:"network_mode,omitempty"`

	// DNS is the list of DNS servers
	DNS []string `yaml:"dns,omitempty" json:"dns,omitempty"`

	// DNSSearch is the list of DNS search domains
	DNSSearch []string `yaml:"dns_search,omitempty" json:"dns_search,omitempty"`

	// ExtraHosts is the list of extra host-file entries
	ExtraHosts []string `yaml:"extra_hosts,omitempty" json:"extra_hosts,omitempty"`

	// Restart is the restart policy
	Restart string `yaml:"restart,omitempty" json:"restart,omitempty"`

	// CapAdd is the list of added capabilities
	CapAdd []string `yaml:"cap_add,omitempty" json:"cap_add,omitempty"`

	// CapDrop is the list of dropped capabilities
	CapDrop []string `yaml:"cap_drop,omitempty" json:"cap_drop,omitempty"`

	// SecurityOpt is the list of security options
	SecurityOpt []string `yaml:"security_opt,omitempty" json:"security_opt,omitempty"`

	// Deploy is the deployment configuration
	Deploy *Deploy `yaml:"deploy,omitempty" json:"deploy,omitempty"`

	// HealthCheck is the health check configuration
	HealthCheck *HealthCheck `yaml:"healthcheck,omitempty" json:"healthcheck,omitempty"`

	// Labels are the user-facing container labels
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Logging is the logging driver configuration
	Logging *Logging `yaml:"logging,omitempty" json:"logging,omitempty"`

	// Devices is the list of device mappings
	Devices []string `yaml:"devices,omitempty" json:"devices,omitempty"`

	// User is the user the process runs as
	User string `yaml:"user,omitempty" json:"user,omitempty"`

	// WorkingDir is the working directory
	WorkingDir string `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`

	// Entrypoint is the entrypoint override
	Entrypoint []string `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`

	// Command is the command override
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`

	// Ulimits is the resource limit table
	Ulimits map[string]Ulimit `yaml:"ulimits,omitempty" json:"ulimits,omitempty"`

	// Sysctls is the kernel parameter table
	Sysctls map[string]string `yaml:"sysctls,omitempty" json:"sysctls,omitempty"`

	// Init runs an init process inside the container
	Init bool `yaml:"init,omitempty" json:"init,omitempty"`

	// Privileged grants extended privileges
	Privileged bool `yaml:"privileged,omitempty" json:"privileged,omitempty"`

	// Tty allocates a pseudo-TTY
	Tty bool `yaml:"tty,omitempty" json:"tty,omitempty"`

	// StdinOpen keeps stdin open
	StdinOpen bool `yaml:"stdin_open,omitempty" json:"stdin_open,omitempty"`

	// DependsOn is the explicit dependency list. It is never derived from
	// introspection; a non-nil pointer to an empty slice is kept as "[]".
	DependsOn *[]string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// Deploy represents the deploy block of a service
type Deploy struct {
	// Resources is the resource constraint configuration
	Resources *Resources `yaml:"resources,omitempty" json:"resources,omitempty"`

	// Placement is the placement configuration
	Placement *Placement `yaml:"placement,omitempty" json:"placement,omitempty"`
}

// Resources represents resource constraints
type Resources struct {
	// Limits is the upper bound on resources
	Limits *ResourceLimits `yaml:"limits,omitempty" json:"limits,omitempty"`

	// Reservations is the guaranteed resources
	Reservations *ResourceLimits `yaml:"reservations,omitempty" json:"reservations,omitempty"`
}

// ResourceLimits represents a CPU and memory pair
type ResourceLimits struct {
	// CPUs is the fractional CPU count, e.g. "0.50"
	CPUs string `yaml:"cpus,omitempty" json:"cpus,omitempty"`

	// Memory is the memory amount, e.g. "512M"
	Memory string `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// Placement represents placement constraints
type Placement struct {
	// Constraints is the list of placement constraints
	Constraints []string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// HealthCheck represents a health check
type HealthCheck struct {
	// Test is the health check command vector
	Test []string `yaml:"test" json:"test"`

	// Interval is the time between checks
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`

	// Timeout is the time a check may run
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Retries is the number of failures before unhealthy
	Retries int `yaml:"retries,omitempty" json:"retries,omitempty"`

	// StartPeriod is the initialization grace period
	StartPeriod string `yaml:"start_period,omitempty" json:"start_period,omitempty"`
}

// Logging represents the logging driver configuration
type Logging struct {
	// Driver is the logging driver name
	Driver string `yaml:"driver" json:"driver"`

	// Options are the driver options
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Ulimit represents a soft/hard resource limit pair
type Ulimit struct {
	// Soft is the soft limit
	Soft int64 `yaml:"soft" json:"soft"`

	// Hard is the hard limit
	Hard int64 `yaml:"hard" json:"hard"`
}

// DependsOnList returns a dependency list pointer suitable for Service.DependsOn
func DependsOnList(names ...string) *[]string {
	list := make([]string, 0, len(names))
	list = append(list, names...)
	return &list
}

// Clone returns a deep copy of the service
func (s *Service) Clone() (*Service, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to clone service: %w", err)
	}
	var out Service
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone service: %w", err)
	}
	return &out, nil
}

// ApplyDefaults fills the fields of s that are absent with the values from
// defaults. Fields that are already set, including maps and nested blocks,
// are left untouched.
func (s *Service) ApplyDefaults(defaults *Service) error {
	if defaults == nil {
		return nil
	}
	src, err := defaults.Clone()
	if err != nil {
		return err
	}
	if err := mergo.Merge(s, src, mergo.WithoutDereference, mergo.WithTransformers(presentKeeper{})); err != nil {
		return fmt.Errorf("failed to apply service defaults: %w", err)
	}
	return nil
}

// presentKeeper stops mergo from merging keys into maps that already hold entries
type presentKeeper struct{}

func (presentKeeper) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t.Kind() != reflect.Map {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.Len() == 0 && src.Len() > 0 {
			dst.Set(src)
		}
		return nil
	}
}
