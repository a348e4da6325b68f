package graph

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// canonicalNode is the id-independent view of a node used for comparison.
type canonicalNode struct {
	Op      string
	Device  string
	Outputs []DataType
	Attrs   map[string]cty.Value
	Inputs  []string
	Control []string
}

type canonicalGraph struct {
	Attrs map[string]cty.Value
	Nodes map[string]canonicalNode
}

func canonicalize(g *Graph) canonicalGraph {
	c := canonicalGraph{
		Attrs: g.Attrs,
		Nodes: make(map[string]canonicalNode, g.live),
	}
	for _, n := range g.Nodes() {
		cn := canonicalNode{
			Op:      n.Op,
			Device:  n.Device,
			Outputs: n.OutputTypes,
			Attrs:   n.Attrs,
		}
		for _, e := range n.InEdges() {
			src := g.nodes[e.Src].name
			if e.IsControl() {
				cn.Control = append(cn.Control, src)
				continue
			}
			cn.Inputs = append(cn.Inputs, fmt.Sprintf("%d<-%s:%d", e.DstInput, src, e.SrcOutput))
		}
		sort.Strings(cn.Control)
		c.Nodes[n.name] = cn
	}
	return c
}

// attrEqual treats values as equal when they are identical or serialize to
// the same JSON, so a list and a tuple with the same elements compare equal.
func attrEqual(a, b cty.Value) bool {
	if a.RawEquals(b) {
		return true
	}
	if !a.IsWhollyKnown() || !b.IsWhollyKnown() {
		return false
	}
	aj, errA := ctyjson.SimpleJSONValue{Value: a}.MarshalJSON()
	bj, errB := ctyjson.SimpleJSONValue{Value: b}.MarshalJSON()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// Diff compares two graphs by node name and structure, ignoring node ids.
// It returns an empty string when they are equivalent.
func Diff(a, b *Graph) string {
	return cmp.Diff(canonicalize(a), canonicalize(b),
		cmp.Comparer(attrEqual),
		cmpopts.EquateEmpty(),
	)
}

// Equal reports whether two graphs are structurally identical.
func Equal(a, b *Graph) bool {
	return Diff(a, b) == ""
}
