package dsl

import "github.com/aretw0/weave/pkg/domain"

// PortSpec declares a port before the builder assigns it an ID and a direction.
type PortSpec struct {
	Name     string
	DataType domain.DataType
}

// Port declares a port with the given name and data type.
func Port(name string, dataType domain.DataType) PortSpec {
	return PortSpec{Name: name, DataType: dataType}
}

// Ports declares untyped ports, one per name.
func Ports(names ...string) []PortSpec {
	specs := make([]PortSpec, len(names))
	for i, name := range names {
		specs[i] = Port(name, domain.DataAny)
	}
	return specs
}

// NodeOption configures a node being added to the graph.
type NodeOption func(*nodeSpec)

type nodeSpec struct {
	description string
	config      map[string]any
	metadata    map[string]any
	inputs      []PortSpec
	outputs     []PortSpec
}

// WithConfig sets the node config map.
func WithConfig(config map[string]any) NodeOption {
	return func(s *nodeSpec) {
		s.config = config
	}
}

// WithInputs replaces the default single "in" port.
func WithInputs(ports ...PortSpec) NodeOption {
	return func(s *nodeSpec) {
		s.inputs = ports
	}
}

// WithOutputs replaces the default single "out" port.
// Condition nodes use index 0 as the true branch and index 1 as the false branch.
func WithOutputs(ports ...PortSpec) NodeOption {
	return func(s *nodeSpec) {
		s.outputs = ports
	}
}

// WithBranches declares the conventional true/false outputs of a condition node.
func WithBranches() NodeOption {
	return WithOutputs(Port("true", domain.DataAny), Port("false", domain.DataAny))
}

// WithDescription sets the node description.
func WithDescription(description string) NodeOption {
	return func(s *nodeSpec) {
		s.description = description
	}
}

// WithMetadata attaches free-form metadata (e.g. layout hints) to the node.
func WithMetadata(metadata map[string]any) NodeOption {
	return func(s *nodeSpec) {
		s.metadata = metadata
	}
}
