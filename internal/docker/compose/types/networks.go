package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// NetworkAttachment is the static address configuration of one attachment
type NetworkAttachment struct {
	// IPv4Address is the static IPv4 address
	IPv4Address string `yaml:"ipv4_address,omitempty" json:"ipv4_address,omitempty"`

	// IPv6Address is the static IPv6 address
	IPv6Address string `yaml:"ipv6_address,omitempty" json:"ipv6_address,omitempty"`
}

// ServiceNetworks holds the networks a service is attached to. It has two
// exclusive forms: a plain list of names, or a map of name to static
// address configuration. Exactly one of List and Static is set.
type ServiceNetworks struct {
	// List is the simple form
	List []string

	// Static is the advanced form
	Static map[string]NetworkAttachment
}

// NetworkList creates the simple list form
func NetworkList(names ...string) *ServiceNetworks {
	return &ServiceNetworks{List: names}
}

// StaticNetworks creates the advanced map form
func StaticNetworks(attachments map[string]NetworkAttachment) *ServiceNetworks {
	return &ServiceNetworks{Static: attachments}
}

// IsStatic reports whether the advanced form is used
func (n *ServiceNetworks) IsStatic() bool {
	return n != nil && n.Static != nil
}

// Names returns the attached network names, sorted for the advanced form
func (n *ServiceNetworks) Names() []string {
	if n == nil {
		return nil
	}
	if !n.IsStatic() {
		return n.List
	}
	names := make([]string, 0, len(n.Static))
	for name := range n.Static {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalYAML implements yaml.Marshaler
func (n ServiceNetworks) MarshalYAML() (interface{}, error) {
	if n.Static != nil {
		return n.Static, nil
	}
	return n.List, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (n *ServiceNetworks) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*n = ServiceNetworks{List: list}
	case yaml.MappingNode:
		static := make(map[string]NetworkAttachment)
		if err := value.Decode(&static); err != nil {
			return err
		}
		*n = ServiceNetworks{Static: static}
	default:
		return fmt.Errorf("networks must be a list or a mapping, got %s", value.Tag)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (n ServiceNetworks) MarshalJSON() ([]byte, error) {
	if n.Static != nil {
		return json.Marshal(n.Static)
	}
	return json.Marshal(n.List)
}

// UnmarshalJSON implements json.Unmarshaler
func (n *ServiceNetworks) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("networks: empty value")
	}
	switch trimmed[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*n = ServiceNetworks{List: list}
	case '{':
		static := make(map[string]NetworkAttachment)
		if err := json.Unmarshal(trimmed, &static); err != nil {
			return err
		}
		*n = ServiceNetworks{Static: static}
	default:
		return fmt.Errorf("networks must be a list or an object")
	}
	return nil
}
