package freshness

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/mark"
	"github.com/specialistvlad/clusterpass/internal/preserve"
	"github.com/specialistvlad/clusterpass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func variable(b *testutil.GraphBuilder, name, device string) graph.NodeID {
	return b.Def(graph.NodeDef{Name: name, Op: "VariableV2", Device: device, OutputTypes: []graph.DataType{"float32_ref"}})
}

func TestRewrite(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	variable(b, "v", "")
	b.Op("init", "Const")
	b.Op("assign", "Assign", "v", "init")
	b.Def(graph.NodeDef{Name: "call", Op: encapsulate.CallOp, OutputTypes: []graph.DataType{"float32"}}, "v")
	b.Op("read", "Identity", "v")
	b.Op("peek", "Print", "v", "^v")

	variable(b, "only_calls", "")
	b.Def(graph.NodeDef{Name: "call2", Op: encapsulate.CallOp, OutputTypes: []graph.DataType{"float32"}}, "only_calls")

	variable(b, "kept", "")
	variable(b, "on_gpu", "/device:GPU:0")

	preserved := preserve.Set{b.ID("kept"): preserve.ReasonKeep}
	res := Rewrite(ctx, b.G, preserved, mark.NewMarker(mark.DefaultCapabilities()))

	assert.Equal(t, []string{"v", "only_calls"}, res.Variables)
	assert.Equal(t, []string{"assign"}, res.Assigns)

	v := b.Node("v")
	assert.Equal(t, TrackedVariableOp, v.Op)
	assert.Equal(t, "VariableV2", v.StringAttr(AttrOriginalOp))
	assert.True(t, v.Attrs[AttrGeneration].RawEquals(cty.NumberIntVal(0)))
	assert.True(t, v.Attrs[AttrUntrusted].RawEquals(graph.StringList([]string{"peek", "read"})))
	assert.True(t, v.Attrs[AttrJustLooking].RawEquals(cty.False))

	assign := b.Node("assign")
	assert.Equal(t, "TrackedAssign", assign.Op)
	assert.True(t, assign.Attrs[AttrBumps].RawEquals(cty.True))

	onlyCalls := b.Node("only_calls")
	assert.True(t, onlyCalls.Attrs[AttrJustLooking].RawEquals(cty.True))
	assert.True(t, onlyCalls.Attrs[AttrUntrusted].RawEquals(cty.ListValEmpty(cty.String)))

	assert.Equal(t, "VariableV2", b.Node("kept").Op)
	assert.Equal(t, "VariableV2", b.Node("on_gpu").Op)
	require.NoError(t, b.G.Validate())
}

func TestRewriteLeavesValueSlotAssignsAlone(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := testutil.NewGraph(t)
	variable(b, "target", "")
	variable(b, "source", "")
	b.Op("assign", "Assign", "target", "source")

	res := Rewrite(ctx, b.G, nil, mark.NewMarker(mark.DefaultCapabilities()))

	assert.Equal(t, []string{"assign"}, res.Assigns)
	// source only feeds the value slot, so the tracked assign is trusted
	// for source as well.
	source := b.Node("source")
	assert.True(t, source.Attrs[AttrJustLooking].RawEquals(cty.True))
}
