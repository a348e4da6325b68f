package graph

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func addNode(t *testing.T, g *Graph, name, op string, outputs ...DataType) *Node {
	t.Helper()
	n, err := g.AddNode(NodeDef{Name: name, Op: op, OutputTypes: outputs})
	require.NoError(t, err)
	return n
}

func TestAddNode(t *testing.T) {
	t.Run("ids are assigned in insertion order", func(t *testing.T) {
		g := New()
		a := addNode(t, g, "a", "Const", "float32")
		b := addNode(t, g, "b", "Neg", "float32")
		assert.Equal(t, NodeID(0), a.ID())
		assert.Equal(t, NodeID(1), b.ID())
		assert.Equal(t, 2, g.NumNodes())
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		g := New()
		addNode(t, g, "a", "Const", "float32")
		_, err := g.AddNode(NodeDef{Name: "a", Op: "Neg"})
		assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
	})

	t.Run("empty name and op are rejected", func(t *testing.T) {
		g := New()
		_, err := g.AddNode(NodeDef{Op: "Neg"})
		assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
		_, err = g.AddNode(NodeDef{Name: "x"})
		assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
	})

	t.Run("ids are not reused after removal", func(t *testing.T) {
		g := New()
		a := addNode(t, g, "a", "Const", "float32")
		g.RemoveNode(a.ID())
		b := addNode(t, g, "a", "Const", "float32")
		assert.Equal(t, NodeID(1), b.ID())
		assert.Nil(t, g.Node(a.ID()))
		assert.Equal(t, 1, g.NumNodes())
	})
}

func TestAddEdge(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "Split", "float32", "float32")
	b := addNode(t, g, "b", "Add", "float32")

	_, err := g.AddEdge(a.ID(), 0, b.ID(), 0)
	require.NoError(t, err)
	_, err = g.AddEdge(a.ID(), 1, b.ID(), 1)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		src, dst NodeID
		out, in  int
	}{
		{"missing source", 42, b.ID(), 0, 2},
		{"missing destination", a.ID(), 42, 0, 0},
		{"self edge", b.ID(), b.ID(), 0, 2},
		{"output out of range", a.ID(), b.ID(), 2, 2},
		{"negative input", a.ID(), b.ID(), 0, -1},
		{"input already fed", a.ID(), b.ID(), 0, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.AddEdge(tc.src, tc.out, tc.dst, tc.in)
			assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
		})
	}

	assert.Equal(t, 2, b.NumInputs())
	assert.Len(t, g.Edges(), 2)
}

func TestControlEdges(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "NoOp")
	b := addNode(t, g, "b", "NoOp")

	e1, err := g.AddControlEdge(a.ID(), b.ID())
	require.NoError(t, err)
	e2, err := g.AddControlEdge(a.ID(), b.ID())
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.True(t, e1.IsControl())
	assert.Equal(t, 0, b.NumInputs())
	assert.Len(t, b.InEdges(), 1)

	g.RemoveEdge(e1)
	assert.Empty(t, a.OutEdges())
	assert.Empty(t, b.InEdges())
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "Const", "float32")
	b := addNode(t, g, "b", "Neg", "float32")
	c := addNode(t, g, "c", "Neg", "float32")
	_, err := g.AddEdge(a.ID(), 0, b.ID(), 0)
	require.NoError(t, err)
	_, err = g.AddEdge(b.ID(), 0, c.ID(), 0)
	require.NoError(t, err)

	g.RemoveNode(b.ID())

	assert.Empty(t, a.OutEdges())
	assert.Empty(t, c.InEdges())
	assert.Empty(t, g.Edges())
	_, ok := g.NodeByName("b")
	assert.False(t, ok)
}

func TestRenameAndUniqueName(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "Const", "float32")
	addNode(t, g, "a_1", "Const", "float32")

	assert.Equal(t, "b", g.UniqueName("b"))
	assert.Equal(t, "a_2", g.UniqueName("a"))

	require.NoError(t, g.Rename(a.ID(), "renamed"))
	n, ok := g.NodeByName("renamed")
	require.True(t, ok)
	assert.Equal(t, a.ID(), n.ID())
	_, ok = g.NodeByName("a")
	assert.False(t, ok)

	assert.ErrorIs(t, g.Rename(a.ID(), "a_1"), passerr.ErrGraphConstruction)
}

func TestCloneIsDeepAndPreservesIDs(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "Const", "float32")
	gone := addNode(t, g, "gone", "NoOp")
	b := addNode(t, g, "b", "Neg", "float32")
	a.SetAttr("value", cty.NumberIntVal(3))
	_, err := g.AddEdge(a.ID(), 0, b.ID(), 0)
	require.NoError(t, err)
	g.RemoveNode(gone.ID())
	g.Attrs["marker"] = cty.True

	c := g.Clone()
	require.True(t, Equal(g, c), Diff(g, c))

	cb, ok := c.NodeByName("b")
	require.True(t, ok)
	assert.Equal(t, b.ID(), cb.ID())
	assert.Nil(t, c.Node(gone.ID()))

	cb.Op = "Abs"
	cb.SetAttr("x", cty.StringVal("y"))
	c.RemoveEdge(cb.InEdges()[0])

	assert.Equal(t, "Neg", b.Op)
	assert.Len(t, b.InEdges(), 1)
	assert.False(t, Equal(g, c))
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := New()
		a := addNode(t, g, "a", "Const", "float32")
		b := addNode(t, g, "b", "Neg", "float32")
		c := addNode(t, g, "c", "Neg", "float32")
		d := addNode(t, g, "d", "Add", "float32")
		for _, e := range [][4]int{{int(a.ID()), 0, int(b.ID()), 0}, {int(a.ID()), 0, int(c.ID()), 0}, {int(b.ID()), 0, int(d.ID()), 0}, {int(c.ID()), 0, int(d.ID()), 1}} {
			_, err := g.AddEdge(NodeID(e[0]), e[1], NodeID(e[2]), e[3])
			require.NoError(t, err)
		}
		assert.NoError(t, g.Validate())
		order, err := g.TopoOrder()
		require.NoError(t, err)
		assert.Equal(t, []NodeID{a.ID(), b.ID(), c.ID(), d.ID()}, order)
	})

	t.Run("control edge cycle is detected", func(t *testing.T) {
		g := New()
		a := addNode(t, g, "a", "NoOp")
		b := addNode(t, g, "b", "NoOp")
		_, err := g.AddControlEdge(a.ID(), b.ID())
		require.NoError(t, err)
		_, err = g.AddControlEdge(b.ID(), a.ID())
		require.NoError(t, err)

		err = g.DetectCycles()
		assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
		assert.ErrorContains(t, err, "cycle detected")
		_, err = g.TopoOrder()
		assert.Error(t, err)
	})
}

func TestValidateRejectsInputGaps(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", "Const", "float32")
	b := addNode(t, g, "b", "Add", "float32")
	_, err := g.AddEdge(a.ID(), 0, b.ID(), 1)
	require.NoError(t, err)

	err = g.Validate()
	assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
	assert.ErrorContains(t, err, "input slot 0")
}

func TestDataTypeRef(t *testing.T) {
	assert.True(t, DataType("float32_ref").IsRef())
	assert.False(t, DataType("float32").IsRef())
	assert.Equal(t, DataType("float32"), DataType("float32_ref").Base())
}

func TestDiffTreatsListsAndTuplesAlike(t *testing.T) {
	g1, g2 := New(), New()
	n1 := addNode(t, g1, "a", "Const", "float32")
	n2 := addNode(t, g2, "a", "Const", "float32")
	n1.SetAttr("names", StringList([]string{"x", "y"}))
	n2.SetAttr("names", cty.TupleVal([]cty.Value{cty.StringVal("x"), cty.StringVal("y")}))

	assert.True(t, Equal(g1, g2), Diff(g1, g2))

	n2.SetAttr("names", StringList([]string{"y", "x"}))
	assert.False(t, Equal(g1, g2))
}
