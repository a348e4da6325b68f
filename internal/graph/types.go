package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// NodeID is a stable arena index. It is never reused within a Graph.
type NodeID int

// ControlSlot is the slot value used on both ends of a control edge.
const ControlSlot = -1

// DataType is the tag of a value flowing along a data edge, e.g. "float32".
type DataType string

const refSuffix = "_ref"

// IsRef reports whether the type is a reference (aliasing) type.
func (t DataType) IsRef() bool {
	return strings.HasSuffix(string(t), refSuffix)
}

// Base strips the reference marker.
func (t DataType) Base() DataType {
	return DataType(strings.TrimSuffix(string(t), refSuffix))
}

// Edge connects an output slot of Src to an input slot of Dst.
type Edge struct {
	Src       NodeID
	SrcOutput int
	Dst       NodeID
	DstInput  int
}

// IsControl reports whether the edge is an ordering-only control edge.
func (e *Edge) IsControl() bool {
	return e.SrcOutput == ControlSlot
}

func (e *Edge) String() string {
	if e.IsControl() {
		return fmt.Sprintf("^%d -> %d", e.Src, e.Dst)
	}
	return fmt.Sprintf("%d:%d -> %d:%d", e.Src, e.SrcOutput, e.Dst, e.DstInput)
}

func edgeLess(a, b *Edge) bool {
	if a.Src != b.Src {
		return a.Src < b.Src
	}
	if a.SrcOutput != b.SrcOutput {
		return a.SrcOutput < b.SrcOutput
	}
	if a.Dst != b.Dst {
		return a.Dst < b.Dst
	}
	return a.DstInput < b.DstInput
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edgeLess(edges[i], edges[j]) })
}

// NodeDef describes a node to insert with AddNode.
type NodeDef struct {
	Name        string
	Op          string
	Device      string
	Attrs       map[string]cty.Value
	OutputTypes []DataType
}

// Node is a single operation in the graph.
type Node struct {
	id          NodeID
	name        string
	Op          string
	Device      string
	Attrs       map[string]cty.Value
	OutputTypes []DataType

	in  []*Edge
	out []*Edge
}

// ID returns the node's arena index.
func (n *Node) ID() NodeID { return n.id }

// Name returns the node's unique name. Use Graph.Rename to change it.
func (n *Node) Name() string { return n.name }

// NumOutputs returns the number of data output slots.
func (n *Node) NumOutputs() int { return len(n.OutputTypes) }

// HasRefOutput reports whether any output slot has a reference type.
func (n *Node) HasRefOutput() bool {
	for _, t := range n.OutputTypes {
		if t.IsRef() {
			return true
		}
	}
	return false
}

// NumInputs returns the number of data input edges.
func (n *Node) NumInputs() int {
	count := 0
	for _, e := range n.in {
		if !e.IsControl() {
			count++
		}
	}
	return count
}

// InEdges returns incoming edges: data edges by input slot, then control
// edges by source id.
func (n *Node) InEdges() []*Edge {
	edges := make([]*Edge, len(n.in))
	copy(edges, n.in)
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.IsControl() != b.IsControl() {
			return !a.IsControl()
		}
		if a.DstInput != b.DstInput {
			return a.DstInput < b.DstInput
		}
		return a.Src < b.Src
	})
	return edges
}

// OutEdges returns outgoing edges ordered by output slot, then destination.
func (n *Node) OutEdges() []*Edge {
	edges := make([]*Edge, len(n.out))
	copy(edges, n.out)
	sortEdges(edges)
	return edges
}

// InputEdge returns the data edge feeding the given input slot, or nil.
func (n *Node) InputEdge(slot int) *Edge {
	for _, e := range n.in {
		if !e.IsControl() && e.DstInput == slot {
			return e
		}
	}
	return nil
}

// Attr returns an attribute value and whether it is set.
func (n *Node) Attr(name string) (cty.Value, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// SetAttr sets an attribute, allocating the map if needed.
func (n *Node) SetAttr(name string, v cty.Value) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]cty.Value)
	}
	n.Attrs[name] = v
}

// StringAttr returns a string attribute, or "" when absent or not a known string.
func (n *Node) StringAttr(name string) string {
	v, ok := n.Attrs[name]
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

// AttrNames returns the attribute names in sorted order.
func (n *Node) AttrNames() []string {
	return sortedKeys(n.Attrs)
}

func sortedKeys(m map[string]cty.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) removeIn(e *Edge) {
	n.in = removeEdge(n.in, e)
}

func (n *Node) removeOut(e *Edge) {
	n.out = removeEdge(n.out, e)
}

func removeEdge(edges []*Edge, target *Edge) []*Edge {
	for i, e := range edges {
		if e == target {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

// StringList builds a list attribute value from strings.
func StringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

// TypeList builds a list attribute value from data types.
func TypeList(types []DataType) cty.Value {
	items := make([]string, len(types))
	for i, t := range types {
		items[i] = string(t)
	}
	return StringList(items)
}
