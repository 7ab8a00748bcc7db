package domain

// NodeType defines the control flow behavior of a node.
type NodeType string

const (
	// NodeTypeTrigger is where a run begins. It has no incoming activation.
	NodeTypeTrigger NodeType = "trigger"
	// NodeTypeAction invokes an external side-effect (tool).
	NodeTypeAction NodeType = "action"
	// NodeTypeCondition routes execution to exactly one of two branches.
	NodeTypeCondition NodeType = "condition"
	// NodeTypeTransform rewrites its input through a template expression.
	NodeTypeTransform NodeType = "transform"
	// NodeTypeDelay waits before dispatching.
	NodeTypeDelay NodeType = "delay"
	// NodeTypeLoop re-executes its body once per element of an array.
	NodeTypeLoop NodeType = "loop"
	// NodeTypeParallel is a pass-through. It does not fork concurrent execution.
	NodeTypeParallel NodeType = "parallel"
	// NodeTypeMerge is a pass-through. It does not wait for sibling branches.
	NodeTypeMerge NodeType = "merge"
	// NodeTypeOutput is a terminal sink.
	NodeTypeOutput NodeType = "output"
	// NodeTypeSubgraph is reserved for nested graphs and dispatched like any custom type.
	NodeTypeSubgraph NodeType = "subgraph"
)

// NodeTypes lists every known node type.
var NodeTypes = []NodeType{
	NodeTypeTrigger, NodeTypeAction, NodeTypeCondition, NodeTypeTransform, NodeTypeDelay,
	NodeTypeLoop, NodeTypeParallel, NodeTypeMerge, NodeTypeOutput, NodeTypeSubgraph,
}

// Known reports whether t is one of the built-in node types.
func (t NodeType) Known() bool {
	for _, k := range NodeTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Config keys interpreted by the executor and the built-in handlers.
const (
	ConfigHandlerType = "handlerType"
	ConfigDelayMs     = "delayMs"
	ConfigField       = "field"
	ConfigOperator    = "operator"
	ConfigValue       = "value"
	ConfigIterableKey = "iterableKey"
	ConfigExpression  = "expression"
	ConfigTool        = "tool"
)

// Keys written into node outputs by the control flow sub-routines.
const (
	KeyConditionMet = "conditionMet"
	KeyLoopItem     = "loopItem"
	KeyLoopIndex    = "loopIndex"
	KeyLoopTotal    = "loopTotal"
	KeyResults      = "results"
	KeyTransformed  = "transformed"
)

// PortDirection tells whether a port receives or emits data.
type PortDirection string

const (
	PortInput  PortDirection = "input"
	PortOutput PortDirection = "output"
)

// DataType is the declared payload type of a port. It is descriptive only.
type DataType string

const (
	DataAny     DataType = "any"
	DataString  DataType = "string"
	DataNumber  DataType = "number"
	DataBoolean DataType = "boolean"
	DataArray   DataType = "array"
	DataObject  DataType = "object"
)

// Port is a connection point on a node.
// Connected only ever goes from false to true.
type Port struct {
	ID        string        `json:"id" yaml:"id" mapstructure:"id"`
	Name      string        `json:"name" yaml:"name" mapstructure:"name"`
	Direction PortDirection `json:"direction" yaml:"direction" mapstructure:"direction"`
	DataType  DataType      `json:"dataType" yaml:"dataType" mapstructure:"dataType"`
	Connected bool          `json:"connected" yaml:"connected" mapstructure:"connected"`
}

// Node represents a typed unit of work in the graph.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	Type        NodeType       `json:"type" yaml:"type"`
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]any `json:"config" yaml:"config"`
	Inputs      []Port         `json:"inputs" yaml:"inputs"`
	Outputs     []Port         `json:"outputs" yaml:"outputs"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ConfigValue returns the config entry for key, or nil.
func (n *Node) ConfigValue(key string) any {
	if n.Config == nil {
		return nil
	}
	return n.Config[key]
}

// ConfigString returns the config entry for key if it is a string.
func (n *Node) ConfigString(key string) string {
	s, _ := n.ConfigValue(key).(string)
	return s
}

// OutputPort returns the output port at index i.
func (n *Node) OutputPort(i int) (*Port, bool) {
	if i < 0 || i >= len(n.Outputs) {
		return nil, false
	}
	return &n.Outputs[i], true
}

// InputPort returns the input port at index i.
func (n *Node) InputPort(i int) (*Port, bool) {
	if i < 0 || i >= len(n.Inputs) {
		return nil, false
	}
	return &n.Inputs[i], true
}

// Operator is the comparison applied by a condition node.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpTruthy      Operator = "truthy"
)

// Operators lists the operators understood by condition nodes.
// Unknown operators fall back to OpTruthy.
var Operators = []Operator{OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpTruthy}
