package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/aretw0/weave/internal/coerce"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/dsl"
	"github.com/aretw0/weave/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned when a file extension maps to no Format.
var ErrUnknownFormat = errors.New("unknown definition format")

// Definition is the authoring form of a graph. Nodes are referenced by key
// instead of generated IDs, and edges by port index or port name.
type Definition struct {
	ID          string         `mapstructure:"id"`
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Owner       string         `mapstructure:"owner"`
	Enabled     *bool          `mapstructure:"enabled"`
	Variables   map[string]any `mapstructure:"variables"`
	Nodes       []NodeDef      `mapstructure:"nodes"`
	Edges       []EdgeDef      `mapstructure:"edges"`
}

// NodeDef declares one node. Key becomes the node ID.
type NodeDef struct {
	Key         string         `mapstructure:"key"`
	Type        string         `mapstructure:"type"`
	Label       string         `mapstructure:"label"`
	Description string         `mapstructure:"description"`
	Config      map[string]any `mapstructure:"config"`
	Inputs      []PortDef      `mapstructure:"inputs"`
	Outputs     []PortDef      `mapstructure:"outputs"`
	Branches    bool           `mapstructure:"branches"`
	Metadata    map[string]any `mapstructure:"metadata"`
}

// PortDef declares a port. In files a bare string is shorthand for {name: <string>}.
type PortDef struct {
	Name     string `mapstructure:"name"`
	DataType string `mapstructure:"dataType"`
}

// EdgeDef connects two nodes. FromPort and ToPort accept an index or a port name
// and default to the first port.
type EdgeDef struct {
	From     string `mapstructure:"from"`
	FromPort any    `mapstructure:"fromPort"`
	To       string `mapstructure:"to"`
	ToPort   any    `mapstructure:"toPort"`
	Label    string `mapstructure:"label"`
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Parse decodes a definition document.
// Unknown keys are rejected so typos surface instead of being ignored.
func Parse(data []byte, format Format) (*Definition, error) {
	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml definition: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if raw == nil {
		return nil, fmt.Errorf("definition is empty")
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  portShorthand,
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &def, nil
}

var portDefType = reflect.TypeOf(PortDef{})

// portShorthand expands `outputs: [true, false]` into port structs.
// YAML reads unquoted true/false as booleans, so those are accepted too.
func portShorthand(from, to reflect.Type, data any) (any, error) {
	if to != portDefType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String, reflect.Bool:
		return map[string]any{"name": fmt.Sprint(data)}, nil
	}
	return data, nil
}

// Load reads, parses and compiles a definition file.
func Load(path string, opts ...dsl.Option) (*domain.Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Compile(def, opts...)
}

// Compile builds the graph through the dsl Builder and validates the result.
// Validation failures are returned as a *schema.AggregateError.
func Compile(def *Definition, opts ...dsl.Option) (*domain.Graph, error) {
	var base []dsl.Option
	if def.ID != "" {
		base = append(base, dsl.WithGraphID(def.ID))
	}
	if def.Description != "" {
		base = append(base, dsl.WithGraphDescription(def.Description))
	}
	if def.Owner != "" {
		base = append(base, dsl.WithOwner(def.Owner))
	}
	b := dsl.New(def.Name, append(base, opts...)...)

	for i, n := range def.Nodes {
		if n.Key == "" {
			return nil, fmt.Errorf("nodes[%d]: missing key", i)
		}
		if n.Type == "" {
			return nil, fmt.Errorf("nodes[%s]: missing type", n.Key)
		}
		label := n.Label
		if label == "" {
			label = n.Key
		}
		if _, err := b.AddNodeWithID(n.Key, domain.NodeType(n.Type), label, nodeOptions(n)...); err != nil {
			return nil, fmt.Errorf("nodes[%s]: %w", n.Key, err)
		}
	}

	for i, e := range def.Edges {
		if err := connect(b, def, e); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}

	names := make([]string, 0, len(def.Variables))
	for name := range def.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.SetVariable(name, def.Variables[name])
	}

	g := b.Build()
	if def.Enabled != nil {
		g.Enabled = *def.Enabled
	}
	if err := schema.ValidateGraph(g); err != nil {
		return nil, err
	}
	return g, nil
}

func nodeOptions(n NodeDef) []dsl.NodeOption {
	opts := []dsl.NodeOption{dsl.WithConfig(n.Config)}
	if n.Description != "" {
		opts = append(opts, dsl.WithDescription(n.Description))
	}
	if n.Metadata != nil {
		opts = append(opts, dsl.WithMetadata(n.Metadata))
	}
	if len(n.Inputs) > 0 {
		opts = append(opts, dsl.WithInputs(portSpecs(n.Inputs)...))
	}
	switch {
	case len(n.Outputs) > 0:
		opts = append(opts, dsl.WithOutputs(portSpecs(n.Outputs)...))
	case n.Branches || domain.NodeType(n.Type) == domain.NodeTypeCondition:
		opts = append(opts, dsl.WithBranches())
	}
	return opts
}

func portSpecs(defs []PortDef) []dsl.PortSpec {
	specs := make([]dsl.PortSpec, len(defs))
	for i, d := range defs {
		specs[i] = dsl.Port(d.Name, domain.DataType(d.DataType))
	}
	return specs
}

func connect(b *dsl.Builder, def *Definition, e EdgeDef) error {
	src, ok := def.node(e.From)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, e.From)
	}
	dst, ok := def.node(e.To)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, e.To)
	}
	srcPort, err := portIndex(e.FromPort, src.outputNames())
	if err != nil {
		return fmt.Errorf("fromPort: %w", err)
	}
	dstPort, err := portIndex(e.ToPort, dst.inputNames())
	if err != nil {
		return fmt.Errorf("toPort: %w", err)
	}
	_, err = b.ConnectLabeled(e.From, srcPort, e.To, dstPort, e.Label)
	return err
}

func (d *Definition) node(key string) (NodeDef, bool) {
	for _, n := range d.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return NodeDef{}, false
}

// outputNames mirrors the port defaults applied by nodeOptions and the Builder.
func (n NodeDef) outputNames() []string {
	switch {
	case len(n.Outputs) > 0:
		return portNames(n.Outputs)
	case n.Branches || domain.NodeType(n.Type) == domain.NodeTypeCondition:
		return []string{"true", "false"}
	default:
		return []string{"out"}
	}
}

func (n NodeDef) inputNames() []string {
	if len(n.Inputs) > 0 {
		return portNames(n.Inputs)
	}
	return []string{"in"}
}

func portNames(defs []PortDef) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// portIndex resolves a port reference. Names are matched before numeric strings.
func portIndex(ref any, names []string) (int, error) {
	if ref == nil {
		return 0, nil
	}
	if s, ok := ref.(string); ok {
		if i := slices.Index(names, s); i >= 0 {
			return i, nil
		}
	}
	if b, ok := ref.(bool); ok {
		if i := slices.Index(names, fmt.Sprint(b)); i >= 0 {
			return i, nil
		}
	}
	i, ok := coerce.Int64(ref)
	if !ok {
		return 0, fmt.Errorf("%w: %v", domain.ErrPortNotFound, ref)
	}
	return int(i), nil
}
