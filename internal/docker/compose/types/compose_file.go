// Package types provides the compose descriptor model produced from container introspection
package types

// ComposeFile represents a synthesized Docker Compose file
type ComposeFile struct {
	// Version is the version of the Compose file format
	Version string `yaml:"version" json:"version"`

	// Services is a map of service name to service definition
	Services map[string]*Service `yaml:"services" json:"services"`

	// Networks is a map of network definitions, present only when non-empty
	Networks map[string]NetworkConfig `yaml:"networks,omitempty" json:"networks,omitempty"`

	// Volumes is a map of volume definitions, present only when non-empty
	Volumes map[string]VolumeConfig `yaml:"volumes,omitempty" json:"volumes,omitempty"`
}

// NewComposeFile creates an empty compose file with the given version
func NewComposeFile(version string) *ComposeFile {
	return &ComposeFile{
		Version:  version,
		Services: make(map[string]*Service),
	}
}

// ServiceNames returns the service names in no particular order
func (f *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	return names
}

// NetworkConfig represents a top-level network definition
type NetworkConfig struct {
	// Driver is the network driver
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`

	// External indicates the network is created outside of compose
	External bool `yaml:"external,omitempty" json:"external,omitempty"`

	// IPAM is the IP address management configuration
	IPAM *IPAMConfig `yaml:"ipam,omitempty" json:"ipam,omitempty"`
}

// IPAMConfig represents the IPAM block of a network definition
type IPAMConfig struct {
	// Driver is the IPAM driver
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`

	// Config is the list of address pools
	Config []IPAMPool `yaml:"config,omitempty" json:"config,omitempty"`
}

// IPAMPool represents one address pool
type IPAMPool struct {
	// Subnet is the pool subnet in CIDR notation
	Subnet string `yaml:"subnet,omitempty" json:"subnet,omitempty"`

	// Gateway is the pool gateway address
	Gateway string `yaml:"gateway,omitempty" json:"gateway,omitempty"`
}

// VolumeConfig represents a top-level volume definition
type VolumeConfig struct {
	// Driver is the volume driver
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`

	// External indicates the volume is created outside of compose
	External bool `yaml:"external,omitempty" json:"external,omitempty"`

	// Name is the actual volume name, if different from the key
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}
