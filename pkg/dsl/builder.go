package dsl

import (
	"fmt"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
)

const (
	defaultInputName  = "in"
	defaultOutputName = "out"
)

// Builder manages the graph construction.
// It is not safe for concurrent use.
type Builder struct {
	graph  *domain.Graph
	newID  func() string
	sealed bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithGraphID fixes the graph ID instead of generating one.
func WithGraphID(id string) Option {
	return func(b *Builder) {
		b.graph.ID = id
	}
}

// WithGraphDescription sets the graph description.
func WithGraphDescription(description string) Option {
	return func(b *Builder) {
		b.graph.Description = description
	}
}

// WithOwner sets the graph CreatedBy field.
func WithOwner(owner string) Option {
	return func(b *Builder) {
		b.graph.CreatedBy = owner
	}
}

// WithIDGenerator replaces the UUID generator used for node and edge IDs.
func WithIDGenerator(gen func() string) Option {
	return func(b *Builder) {
		b.newID = gen
	}
}

// New creates a new graph builder.
func New(name string, opts ...Option) *Builder {
	b := &Builder{
		graph: domain.NewGraph(uuid.NewString(), name),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// maxIDAttempts caps how many generated IDs AddNode tries before giving up.
const maxIDAttempts = 8

// AddNode creates a node with a fresh unique ID and returns that ID.
// Unless overridden, the node gets a single "in" input and a single "out" output.
// It returns "" if the builder is sealed or the ID generator keeps colliding.
func (b *Builder) AddNode(nodeType domain.NodeType, label string, opts ...NodeOption) string {
	for range maxIDAttempts {
		id := b.newID()
		if _, taken := b.graph.Node(id); taken {
			continue
		}
		if _, err := b.AddNodeWithID(id, nodeType, label, opts...); err != nil {
			return ""
		}
		return id
	}
	return ""
}

// AddNodeWithID creates a node under a caller-chosen ID.
// It fails with ErrDuplicateNode if the ID is taken.
func (b *Builder) AddNodeWithID(id string, nodeType domain.NodeType, label string, opts ...NodeOption) (string, error) {
	if b.sealed {
		return "", domain.ErrBuilderSealed
	}
	if _, taken := b.graph.Node(id); taken {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicateNode, id)
	}

	spec := nodeSpec{
		inputs:  Ports(defaultInputName),
		outputs: Ports(defaultOutputName),
	}
	for _, opt := range opts {
		opt(&spec)
	}
	config := spec.config
	if config == nil {
		config = make(map[string]any)
	}

	b.graph.PutNode(&domain.Node{
		ID:          id,
		Type:        nodeType,
		Label:       label,
		Description: spec.description,
		Config:      config,
		Inputs:      makePorts(id, domain.PortInput, spec.inputs),
		Outputs:     makePorts(id, domain.PortOutput, spec.outputs),
		Metadata:    spec.metadata,
	})
	return id, nil
}

func makePorts(nodeID string, dir domain.PortDirection, specs []PortSpec) []domain.Port {
	ports := make([]domain.Port, len(specs))
	for i, s := range specs {
		dt := s.DataType
		if dt == "" {
			dt = domain.DataAny
		}
		ports[i] = domain.Port{
			ID:        fmt.Sprintf("%s:%s:%d", nodeID, dir, i),
			Name:      s.Name,
			Direction: dir,
			DataType:  dt,
		}
	}
	return ports
}

// Connect adds an edge from the Nth output port of the source node to the Nth input port
// of the target node and returns the edge ID. Both ports are marked connected.
// Fan-out and fan-in are allowed.
func (b *Builder) Connect(sourceID string, sourcePort int, targetID string, targetPort int) (string, error) {
	return b.ConnectLabeled(sourceID, sourcePort, targetID, targetPort, "")
}

// ConnectLabeled is Connect with an edge label.
func (b *Builder) ConnectLabeled(sourceID string, sourcePort int, targetID string, targetPort int, label string) (string, error) {
	if b.sealed {
		return "", domain.ErrBuilderSealed
	}

	src, ok := b.graph.Node(sourceID)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, sourceID)
	}
	dst, ok := b.graph.Node(targetID)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, targetID)
	}
	out, ok := src.OutputPort(sourcePort)
	if !ok {
		return "", fmt.Errorf("%w: output %d on %s", domain.ErrPortNotFound, sourcePort, sourceID)
	}
	in, ok := dst.InputPort(targetPort)
	if !ok {
		return "", fmt.Errorf("%w: input %d on %s", domain.ErrPortNotFound, targetPort, targetID)
	}

	edge := domain.Edge{
		ID:           b.newID(),
		SourceNodeID: sourceID,
		SourcePortID: out.ID,
		TargetNodeID: targetID,
		TargetPortID: in.ID,
		Label:        label,
	}
	b.graph.Edges = append(b.graph.Edges, edge)
	out.Connected = true
	in.Connected = true
	return edge.ID, nil
}

// SetVariable stores a shared variable visible to every handler at run time.
func (b *Builder) SetVariable(name string, value any) {
	if b.sealed {
		return
	}
	b.graph.Variables[name] = value
}

// Build stamps UpdatedAt and returns the graph. The builder is sealed afterwards:
// AddNode returns "", Connect returns ErrBuilderSealed and SetVariable is ignored.
func (b *Builder) Build() *domain.Graph {
	if !b.sealed {
		b.graph.UpdatedAt = time.Now().UTC()
		b.sealed = true
	}
	return b.graph
}
