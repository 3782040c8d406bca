package types

import "gopkg.in/yaml.v3"

// PortList is a list of published port mappings. YAML output double quotes
// every entry so that YAML 1.1 readers do not take "22:22" for a base-60 number.
type PortList []string

// MarshalYAML implements yaml.Marshaler
func (p PortList) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode}
	for _, port := range p {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: port,
			Style: yaml.DoubleQuotedStyle,
		})
	}
	return node, nil
}
