package encapsulate

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
	"github.com/specialistvlad/clusterpass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func tableOf(t *testing.T, b *testutil.GraphBuilder, clusters map[cluster.ID][]string) *cluster.Table {
	t.Helper()
	table := cluster.NewTable()
	for id, names := range clusters {
		for _, name := range names {
			n := b.Node(name)
			require.NoError(t, table.Add(id, n.ID(), n.Device))
		}
	}
	return table
}

func TestEncapsulateChain(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	b.Op("x", "Placeholder")
	b.Op("a", "Relu", "x")
	b.Op("b", "Neg", "a")
	b.Op("y", "Print", "b")

	table := tableOf(t, b, map[cluster.ID][]string{0: {"a", "b"}})
	hints, err := shapehint.Parse("a:{1,2}.x:{3}")
	require.NoError(t, err)

	arts, err := Encapsulate(ctx, b.G, table, Options{RunIndex: 7, Backend: "CPU", ShapeHints: hints})
	require.NoError(t, err)
	require.Len(t, arts, 1)
	art := arts[0]

	assert.Equal(t, Key{RunIndex: 7, ClusterID: 0}, art.Key)
	assert.Equal(t, "cluster_7_0", art.Name)
	assert.Equal(t, []Slot{{Index: 0, Node: "x", Output: 0, Type: "float32"}}, art.Inputs)
	assert.Equal(t, []Slot{{Index: 0, Node: "b", Output: 0, Type: "float32"}}, art.Outputs)
	assert.Equal(t, shapehint.Set{"a": {{1, 2}}}, art.ShapeHints)

	// Main graph: x -> call -> y.
	assert.Equal(t, 3, b.G.NumNodes())
	call := b.Node("cluster_7_0")
	assert.Equal(t, CallOp, call.Op)
	assert.Equal(t, "cluster_7_0", call.StringAttr(AttrFunction))
	assert.True(t, call.Attrs[AttrClusterID].RawEquals(cty.NumberIntVal(0)))
	assert.Equal(t, b.ID("x"), call.InputEdge(0).Src)
	assert.Equal(t, call.ID(), b.Node("y").InputEdge(0).Src)
	require.NoError(t, b.G.Validate())

	// Artifact body: arg -> a -> b -> retval.
	body := art.Graph
	assert.Equal(t, 4, body.NumNodes())
	arg, ok := body.NodeByName("arg_0")
	require.True(t, ok)
	assert.Equal(t, ArgOp, arg.Op)
	ret, ok := body.NodeByName("retval_0")
	require.True(t, ok)
	assert.Equal(t, RetvalOp, ret.Op)
	bodyA, _ := body.NodeByName("a")
	bodyB, _ := body.NodeByName("b")
	assert.Equal(t, arg.ID(), bodyA.InputEdge(0).Src)
	assert.Equal(t, bodyA.ID(), bodyB.InputEdge(0).Src)
	assert.Equal(t, bodyB.ID(), ret.InputEdge(0).Src)
}

func TestEncapsulateSlotOrderingAndFanOut(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	b.Op("x1", "Placeholder")
	b.Def(graph.NodeDef{Name: "x2", Op: "Placeholder", OutputTypes: []graph.DataType{"int32"}})
	b.Def(graph.NodeDef{Name: "split", Op: "Split", OutputTypes: []graph.DataType{"float32", "float32"}}, "x1")
	b.Op("cast", "Cast", "x2")
	b.Op("add", "Add", "split:1", "cast")
	b.Op("mul", "Mul", "split:0", "add")
	b.Op("p1", "Print", "mul")
	b.Op("p2", "Print", "add")
	b.Op("p3", "Print", "add", "split:1")

	table := tableOf(t, b, map[cluster.ID][]string{3: {"split", "cast", "add", "mul"}})
	arts, err := Encapsulate(ctx, b.G, table, Options{RunIndex: 1})
	require.NoError(t, err)
	art := arts[0]

	// Inputs ordered by producer id: x1 then x2.
	assert.Equal(t, []Slot{
		{Index: 0, Node: "x1", Output: 0, Type: "float32"},
		{Index: 1, Node: "x2", Output: 0, Type: "int32"},
	}, art.Inputs)
	// Outputs are unique tensors ordered by producer id and slot.
	assert.Equal(t, []Slot{
		{Index: 0, Node: "split", Output: 1, Type: "float32"},
		{Index: 1, Node: "add", Output: 0, Type: "float32"},
		{Index: 2, Node: "mul", Output: 0, Type: "float32"},
	}, art.Outputs)
	assert.Equal(t, []graph.DataType{"float32", "int32"}, art.Tin())

	call := b.Node("cluster_1_3")
	assert.Equal(t, []graph.DataType{"float32", "float32", "float32"}, call.OutputTypes)
	assert.Equal(t, 2, call.NumInputs())

	assert.Equal(t, 2, b.Node("p1").InputEdge(0).SrcOutput)
	assert.Equal(t, 1, b.Node("p2").InputEdge(0).SrcOutput)
	p3 := b.Node("p3")
	assert.Equal(t, 1, p3.InputEdge(0).SrcOutput)
	assert.Equal(t, 0, p3.InputEdge(1).SrcOutput)
	for _, n := range []string{"p1", "p2", "p3"} {
		assert.Equal(t, call.ID(), b.Node(n).InputEdge(0).Src)
	}

	// External inputs and outputs are preserved in count.
	assert.Equal(t, 6, b.G.NumNodes())
	require.NoError(t, b.G.Validate())
	require.NoError(t, art.Graph.Validate())
}

func TestEncapsulateChainedClusters(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	dev := func(name, op, device string, inputs ...string) {
		b.Def(graph.NodeDef{Name: name, Op: op, Device: device, OutputTypes: []graph.DataType{"float32"}}, inputs...)
	}
	dev("x", "Placeholder", "")
	dev("a1", "Relu", "/device:CPU:0", "x")
	dev("a2", "Neg", "/device:CPU:0", "a1")
	dev("b1", "Exp", "/device:CPU:1", "a2")
	dev("b2", "Abs", "/device:CPU:1", "b1", "a1")
	dev("y", "Print", "", "b2")

	table := tableOf(t, b, map[cluster.ID][]string{0: {"a1", "a2"}, 1: {"b1", "b2"}})
	arts, err := Encapsulate(ctx, b.G, table, Options{})
	require.NoError(t, err)
	require.Len(t, arts, 2)

	// Cluster 1's signature is derived from the incoming graph.
	assert.Equal(t, []Slot{
		{Index: 0, Node: "a1", Output: 0, Type: "float32"},
		{Index: 1, Node: "a2", Output: 0, Type: "float32"},
	}, arts[1].Inputs)

	callA := b.Node("cluster_0_0")
	callB := b.Node("cluster_0_1")
	assert.Equal(t, "/device:CPU:1", callB.Device)
	// a1 and a2 now reach cluster 1 through cluster 0's outputs 0 and 1.
	assert.Equal(t, callA.ID(), callB.InputEdge(0).Src)
	assert.Equal(t, 0, callB.InputEdge(0).SrcOutput)
	assert.Equal(t, callA.ID(), callB.InputEdge(1).Src)
	assert.Equal(t, 1, callB.InputEdge(1).SrcOutput)
	assert.Equal(t, 4, b.G.NumNodes())
	require.NoError(t, b.G.Validate())
}

func TestEncapsulateControlEdges(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	b.Op("init", "NoOp")
	b.Op("x", "Placeholder")
	b.Op("a", "Relu", "x", "^init")
	b.Op("c", "Neg", "a", "^init")
	b.Op("done", "NoOp", "^a", "^c")

	table := tableOf(t, b, map[cluster.ID][]string{0: {"a", "c"}})
	_, err := Encapsulate(ctx, b.G, table, Options{})
	require.NoError(t, err)

	call := b.Node("cluster_0_0")
	var controlIn []graph.NodeID
	for _, e := range call.InEdges() {
		if e.IsControl() {
			controlIn = append(controlIn, e.Src)
		}
	}
	assert.Equal(t, []graph.NodeID{b.ID("init")}, controlIn)

	doneIn := b.Node("done").InEdges()
	require.Len(t, doneIn, 1)
	assert.True(t, doneIn[0].IsControl())
	assert.Equal(t, call.ID(), doneIn[0].Src)
	assert.Empty(t, call.OutputTypes, "control-only consumers add no output slot")
}

func TestEncapsulateEmptyTable(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	b.Op("x", "Placeholder")
	before := b.G.Clone()

	arts, err := Encapsulate(ctx, b.G, cluster.NewTable(), Options{})
	require.NoError(t, err)
	assert.Empty(t, arts)
	assert.True(t, graph.Equal(before, b.G))
}
