package mark

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/graph"
)

// Constraint is a node-local check applied to every node of a registered op.
// It returns an empty string when the node is acceptable, otherwise the reason
// it is not.
type Constraint func(n *graph.Node) string

// Capabilities describes what a compiler backend can accept.
type Capabilities struct {
	// Backend names the target, used in logs and artifact metadata.
	Backend string

	// Operations maps supported ops to their node-local constraints.
	// Ops not listed are unsupported.
	Operations map[string][]Constraint

	// Devices lists accepted device types, e.g. "CPU". Empty accepts any
	// device. Nodes without a device are always accepted.
	Devices map[string]bool

	// DataTypes lists accepted output types. Empty accepts any type.
	DataTypes map[graph.DataType]bool
}

// NewCapabilities returns an empty capability table for a backend.
func NewCapabilities(backend string) *Capabilities {
	return &Capabilities{
		Backend:    backend,
		Operations: make(map[string][]Constraint),
		Devices:    make(map[string]bool),
		DataTypes:  make(map[graph.DataType]bool),
	}
}

// RegisterOp declares op as supported. Registering the same op twice is a
// programming error and panics.
func (c *Capabilities) RegisterOp(op string, constraints ...Constraint) {
	if _, exists := c.Operations[op]; exists {
		panic(fmt.Sprintf("mark: op %q registered twice for backend %q", op, c.Backend))
	}
	c.Operations[op] = constraints
}

// AllowDevices adds accepted device types.
func (c *Capabilities) AllowDevices(devices ...string) {
	for _, d := range devices {
		c.Devices[strings.ToUpper(d)] = true
	}
}

// AllowDataTypes adds accepted output types.
func (c *Capabilities) AllowDataTypes(types ...graph.DataType) {
	for _, t := range types {
		c.DataTypes[t] = true
	}
}

// Supports reports whether op is registered.
func (c *Capabilities) Supports(op string) bool {
	_, ok := c.Operations[op]
	return ok
}

// Ops returns the registered op names, sorted.
func (c *Capabilities) Ops() []string {
	ops := make([]string, 0, len(c.Operations))
	for op := range c.Operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// AcceptsDevice reports whether a node placed on device may be offloaded.
func (c *Capabilities) AcceptsDevice(device string) bool {
	if device == "" || len(c.Devices) == 0 {
		return true
	}
	return c.Devices[DeviceType(device)]
}

// AcceptsDataType reports whether values of type t may flow through a cluster.
func (c *Capabilities) AcceptsDataType(t graph.DataType) bool {
	if len(c.DataTypes) == 0 {
		return true
	}
	return c.DataTypes[t]
}

// DeviceType extracts the upper-cased device type from a device string.
// "/job:w/replica:0/device:GPU:1" and "gpu:1" both yield "GPU".
func DeviceType(device string) string {
	if i := strings.LastIndex(strings.ToLower(device), "device:"); i >= 0 {
		device = device[i+len("device:"):]
	}
	device = strings.TrimPrefix(device, "/")
	if i := strings.IndexByte(device, ':'); i >= 0 {
		device = device[:i]
	}
	return strings.ToUpper(device)
}

// AttrIn builds a constraint requiring a string attribute, when set, to be one
// of the allowed values.
func AttrIn(attr string, allowed ...string) Constraint {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	return func(n *graph.Node) string {
		if _, ok := n.Attr(attr); !ok {
			return ""
		}
		v := n.StringAttr(attr)
		if !set[v] {
			return fmt.Sprintf("unsupported %s %q", attr, v)
		}
		return ""
	}
}

// AttrNotIn builds a constraint rejecting the listed values of a string attribute.
func AttrNotIn(attr string, rejected ...string) Constraint {
	set := make(map[string]bool, len(rejected))
	for _, r := range rejected {
		set[r] = true
	}
	return func(n *graph.Node) string {
		if v := n.StringAttr(attr); set[v] {
			return fmt.Sprintf("unsupported %s %q", attr, v)
		}
		return ""
	}
}

// builtinConstraints are attached to ops whenever a backend registers them
// from configuration.
var builtinConstraints = map[string][]Constraint{
	"Conv2D":  {AttrIn("data_format", "NHWC", "NCHW"), AttrIn("padding", "SAME", "VALID")},
	"MaxPool": {AttrIn("data_format", "NHWC", "NCHW"), AttrIn("padding", "SAME", "VALID")},
	"AvgPool": {AttrIn("data_format", "NHWC", "NCHW"), AttrIn("padding", "SAME", "VALID")},
	"BiasAdd": {AttrIn("data_format", "NHWC", "NCHW")},
	"Const":   {AttrNotIn("dtype", "string", "resource", "variant")},
}

var defaultOps = []string{
	"Abs", "Add", "AddN", "AddV2", "AvgPool", "BiasAdd", "Cast", "ConcatV2",
	"Const", "Conv2D", "Div", "Equal", "Exp", "ExpandDims", "Fill", "Greater",
	"Identity", "Less", "Log", "MatMul", "Max", "MaxPool", "Maximum", "Mean",
	"Min", "Minimum", "Mul", "Neg", "OnesLike", "Pack", "Pad", "Pow", "RealDiv",
	"Relu", "Relu6", "Reshape", "Rsqrt", "Select", "Sigmoid", "Slice", "Softmax",
	"Split", "Sqrt", "Square", "Squeeze", "StridedSlice", "Sub", "Sum", "Tanh",
	"Transpose", "ZerosLike",
}

var defaultDataTypes = []graph.DataType{
	"bool", "float16", "float32", "float64", "int8", "int16", "int32", "int64", "uint8",
}

// NewBackend builds a capability table from plain lists, attaching the
// built-in constraints of every known op.
func NewBackend(name string, ops, devices []string, dataTypes []graph.DataType) *Capabilities {
	c := NewCapabilities(name)
	for _, op := range ops {
		c.RegisterOp(op, builtinConstraints[op]...)
	}
	c.AllowDevices(devices...)
	c.AllowDataTypes(dataTypes...)
	return c
}

// DefaultCapabilities is a CPU backend covering common arithmetic and
// neural network ops.
func DefaultCapabilities() *Capabilities {
	return NewBackend("CPU", defaultOps, []string{"CPU"}, defaultDataTypes)
}
