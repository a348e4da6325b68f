package testutil

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/nodeid"
	"github.com/stretchr/testify/require"
)

// GraphBuilder builds graphs for tests from endpoint references.
type GraphBuilder struct {
	t testing.TB
	G *graph.Graph
}

// NewGraph starts an empty graph.
func NewGraph(t testing.TB) *GraphBuilder {
	return &GraphBuilder{t: t, G: graph.New()}
}

// Op adds a node with a single float32 output. Inputs use the endpoint
// syntax: `a`, `a:1` for data and `^a` for control.
func (b *GraphBuilder) Op(name, op string, inputs ...string) graph.NodeID {
	b.t.Helper()
	return b.Def(graph.NodeDef{Name: name, Op: op, OutputTypes: []graph.DataType{"float32"}}, inputs...)
}

// Def adds a node from a full definition and wires its inputs in order.
func (b *GraphBuilder) Def(def graph.NodeDef, inputs ...string) graph.NodeID {
	b.t.Helper()
	n, err := b.G.AddNode(def)
	require.NoError(b.t, err)

	slot := 0
	for _, raw := range inputs {
		ref, err := nodeid.Parse(raw)
		require.NoError(b.t, err)
		src, ok := b.G.NodeByName(ref.Node)
		require.True(b.t, ok, "input %q of %q refers to an unknown node", raw, def.Name)
		if ref.Control {
			_, err = b.G.AddControlEdge(src.ID(), n.ID())
		} else {
			_, err = b.G.AddEdge(src.ID(), ref.Output, n.ID(), slot)
			slot++
		}
		require.NoError(b.t, err)
	}
	return n.ID()
}

// ID returns the id of a named node.
func (b *GraphBuilder) ID(name string) graph.NodeID {
	b.t.Helper()
	n, ok := b.G.NodeByName(name)
	require.True(b.t, ok, "node %q not found", name)
	return n.ID()
}

// Node returns a named node.
func (b *GraphBuilder) Node(name string) *graph.Node {
	b.t.Helper()
	n, ok := b.G.NodeByName(name)
	require.True(b.t, ok, "node %q not found", name)
	return n
}
