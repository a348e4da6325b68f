// Package encapsulate replaces each surviving cluster with a single call
// node and emits the cluster's members as a standalone artifact graph.
//
// The call node's input and output slots are laid out for every cluster
// before any cluster is rewritten: external tensors are sorted by the
// (producer id, output) they had in the incoming graph. Later clusters that
// consume the outputs of an earlier, already rewritten cluster follow a
// forwarding map from the original tensor to the call node output.
package encapsulate

import (
	"context"
	"sort"
	"strconv"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
	"github.com/zclconf/go-cty/cty"
)

// Options configure one encapsulation pass.
type Options struct {
	RunIndex   int64
	Backend    string
	ShapeHints shapehint.Set
}

type tensor struct {
	node   graph.NodeID
	output int
}

func tensorLess(a, b tensor) bool {
	if a.node != b.node {
		return a.node < b.node
	}
	return a.output < b.output
}

// plan is the boundary layout of one cluster, in pre-rewrite tensors.
type plan struct {
	c       *cluster.Cluster
	inputs  []tensor
	outputs []tensor
	names   map[graph.NodeID]string
}

func sortedTensors(set map[tensor]bool) []tensor {
	out := make([]tensor, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return tensorLess(out[i], out[j]) })
	return out
}

func planCluster(g *graph.Graph, c *cluster.Cluster) *plan {
	ins := make(map[tensor]bool)
	outs := make(map[tensor]bool)
	names := make(map[graph.NodeID]string)
	for _, id := range c.Members {
		n := g.Node(id)
		for _, e := range n.InEdges() {
			if !e.IsControl() && !c.Contains(e.Src) {
				ins[tensor{e.Src, e.SrcOutput}] = true
				names[e.Src] = g.Node(e.Src).Name()
			}
		}
		for _, e := range n.OutEdges() {
			if !e.IsControl() && !c.Contains(e.Dst) {
				outs[tensor{id, e.SrcOutput}] = true
				names[id] = n.Name()
			}
		}
	}
	return &plan{c: c, inputs: sortedTensors(ins), outputs: sortedTensors(outs), names: names}
}

// Encapsulate rewrites every cluster in t, in ascending id order, and
// returns one artifact per cluster.
func Encapsulate(ctx context.Context, g *graph.Graph, t *cluster.Table, opts Options) ([]*Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	plans := make([]*plan, 0, t.Len())
	for _, c := range t.Clusters() {
		plans = append(plans, planCluster(g, c))
	}

	forward := make(map[tensor]tensor)
	resolve := func(x tensor) tensor {
		if f, ok := forward[x]; ok {
			return f
		}
		return x
	}

	artifacts := make([]*Artifact, 0, len(plans))
	for _, p := range plans {
		art, call, err := encapsulateOne(g, p, resolve, opts)
		if err != nil {
			return nil, err
		}
		for j, out := range p.outputs {
			forward[out] = tensor{call, j}
		}
		artifacts = append(artifacts, art)
		logger.Debug("Cluster encapsulated.",
			"cluster", p.c.ID, "function", art.Name, "members", p.c.Size(),
			"inputs", len(art.Inputs), "outputs", len(art.Outputs))
	}
	return artifacts, nil
}

type boundaryEdge struct {
	member graph.NodeID
	edge   graph.Edge
}

func encapsulateOne(g *graph.Graph, p *plan, resolve func(tensor) tensor, opts Options) (*Artifact, graph.NodeID, error) {
	const op = "encapsulate"
	c := p.c
	key := Key{RunIndex: opts.RunIndex, ClusterID: c.ID}
	name := FunctionName(key)

	inputSlot := make(map[tensor]int, len(p.inputs))
	inputs := make([]Slot, len(p.inputs))
	for i, orig := range p.inputs {
		cur := resolve(orig)
		src := g.Node(cur.node)
		if src == nil {
			return nil, 0, passerr.Encapsulation(op, "cluster %d input %d comes from missing node %d", c.ID, i, cur.node)
		}
		inputSlot[cur] = i
		inputs[i] = Slot{Index: i, Node: p.names[orig.node], Output: orig.output, Type: src.OutputTypes[cur.output]}
	}
	outputSlot := make(map[tensor]int, len(p.outputs))
	outputs := make([]Slot, len(p.outputs))
	for j, t := range p.outputs {
		outputSlot[t] = j
		outputs[j] = Slot{Index: j, Node: p.names[t.node], Output: t.output, Type: g.Node(t.node).OutputTypes[t.output]}
	}

	body, err := buildBody(g, c, p, inputs, outputs, resolve)
	if err != nil {
		return nil, 0, err
	}

	art := &Artifact{
		Key:        key,
		Name:       name,
		Backend:    opts.Backend,
		Device:     c.Device,
		Graph:      body,
		Inputs:     inputs,
		Outputs:    outputs,
		ShapeHints: memberHints(g, c, opts.ShapeHints),
	}

	// Record boundary edges before the members, and their edges, go away.
	var dataIn, dataOut, ctrlIn, ctrlOut []boundaryEdge
	for _, id := range c.Members {
		n := g.Node(id)
		for _, e := range n.InEdges() {
			if c.Contains(e.Src) {
				continue
			}
			if e.IsControl() {
				ctrlIn = append(ctrlIn, boundaryEdge{id, *e})
			} else {
				dataIn = append(dataIn, boundaryEdge{id, *e})
			}
		}
		for _, e := range n.OutEdges() {
			if c.Contains(e.Dst) {
				continue
			}
			if e.IsControl() {
				ctrlOut = append(ctrlOut, boundaryEdge{id, *e})
			} else {
				dataOut = append(dataOut, boundaryEdge{id, *e})
			}
		}
	}

	before := g.NumNodes()
	call, err := g.AddNode(graph.NodeDef{
		Name:   g.UniqueName(name),
		Op:     CallOp,
		Device: c.Device,
		Attrs: map[string]cty.Value{
			AttrClusterID: cty.NumberIntVal(int64(c.ID)),
			AttrRunIndex:  cty.NumberIntVal(opts.RunIndex),
			AttrFunction:  cty.StringVal(name),
			AttrTin:       graph.TypeList(art.Tin()),
			AttrTout:      graph.TypeList(art.Tout()),
		},
		OutputTypes: art.Tout(),
	})
	if err != nil {
		return nil, 0, err
	}
	for _, id := range c.Members {
		g.RemoveNode(id)
	}

	for i, orig := range p.inputs {
		cur := resolve(orig)
		if _, err := g.AddEdge(cur.node, cur.output, call.ID(), i); err != nil {
			return nil, 0, passerr.Encapsulation(op, "wiring input %d of %s: %v", i, name, err)
		}
	}
	for _, b := range dataIn {
		if _, ok := inputSlot[tensor{b.edge.Src, b.edge.SrcOutput}]; !ok {
			return nil, 0, passerr.Encapsulation(op, "edge %s into cluster %d has no input slot", b.edge.String(), c.ID)
		}
	}
	for _, b := range dataOut {
		j, ok := outputSlot[tensor{b.member, b.edge.SrcOutput}]
		if !ok {
			return nil, 0, passerr.Encapsulation(op, "edge %s out of cluster %d has no output slot", b.edge.String(), c.ID)
		}
		if _, err := g.AddEdge(call.ID(), j, b.edge.Dst, b.edge.DstInput); err != nil {
			return nil, 0, passerr.Encapsulation(op, "wiring output %d of %s: %v", j, name, err)
		}
	}
	for _, b := range ctrlIn {
		if _, err := g.AddControlEdge(b.edge.Src, call.ID()); err != nil {
			return nil, 0, passerr.Encapsulation(op, "control input of %s: %v", name, err)
		}
	}
	for _, b := range ctrlOut {
		if _, err := g.AddControlEdge(call.ID(), b.edge.Dst); err != nil {
			return nil, 0, passerr.Encapsulation(op, "control output of %s: %v", name, err)
		}
	}

	if err := verify(g, call, len(inputs), before, c.Size()); err != nil {
		return nil, 0, err
	}
	return art, call.ID(), nil
}

func verify(g *graph.Graph, call *graph.Node, numInputs, before, size int) error {
	const op = "encapsulate.verify"
	if got := call.NumInputs(); got != numInputs {
		return passerr.Encapsulation(op, "%s has %d data inputs, signature has %d", call.Name(), got, numInputs)
	}
	for i := range numInputs {
		if call.InputEdge(i) == nil {
			return passerr.Encapsulation(op, "input slot %d of %s is not filled", i, call.Name())
		}
	}
	if after := g.NumNodes(); before-after != size-1 {
		return passerr.Encapsulation(op, "node count went from %d to %d for a cluster of %d", before, after, size)
	}
	return nil
}

// buildBody copies the members and their internal edges into a new graph
// and adds the argument and result nodes.
func buildBody(g *graph.Graph, c *cluster.Cluster, p *plan, inputs, outputs []Slot, resolve func(tensor) tensor) (*graph.Graph, error) {
	body := graph.New()
	ids := make(map[graph.NodeID]graph.NodeID, c.Size())
	for _, id := range c.Members {
		n := g.Node(id)
		copied, err := body.AddNode(graph.NodeDef{
			Name:        n.Name(),
			Op:          n.Op,
			Device:      n.Device,
			Attrs:       n.Attrs,
			OutputTypes: n.OutputTypes,
		})
		if err != nil {
			return nil, err
		}
		ids[id] = copied.ID()
	}

	argOf := make(map[tensor]graph.NodeID, len(inputs))
	for i, orig := range p.inputs {
		arg, err := body.AddNode(graph.NodeDef{
			Name:        body.UniqueName(argName(i)),
			Op:          ArgOp,
			Attrs:       map[string]cty.Value{AttrIndex: cty.NumberIntVal(int64(i)), AttrType: cty.StringVal(string(inputs[i].Type))},
			OutputTypes: []graph.DataType{inputs[i].Type},
		})
		if err != nil {
			return nil, err
		}
		argOf[resolve(orig)] = arg.ID()
	}

	for _, id := range c.Members {
		for _, e := range g.Node(id).InEdges() {
			switch {
			case c.Contains(e.Src) && e.IsControl():
				_, err := body.AddControlEdge(ids[e.Src], ids[id])
				if err != nil {
					return nil, err
				}
			case c.Contains(e.Src):
				if _, err := body.AddEdge(ids[e.Src], e.SrcOutput, ids[id], e.DstInput); err != nil {
					return nil, err
				}
			case !e.IsControl():
				arg, ok := argOf[tensor{e.Src, e.SrcOutput}]
				if !ok {
					return nil, passerr.Encapsulation("encapsulate.body", "edge %s into cluster %d has no argument", e.String(), c.ID)
				}
				if _, err := body.AddEdge(arg, 0, ids[id], e.DstInput); err != nil {
					return nil, err
				}
			}
		}
	}

	for j, t := range p.outputs {
		ret, err := body.AddNode(graph.NodeDef{
			Name:  body.UniqueName(retvalName(j)),
			Op:    RetvalOp,
			Attrs: map[string]cty.Value{AttrIndex: cty.NumberIntVal(int64(j)), AttrType: cty.StringVal(string(outputs[j].Type))},
		})
		if err != nil {
			return nil, err
		}
		if _, err := body.AddEdge(ids[t.node], t.output, ret.ID(), 0); err != nil {
			return nil, err
		}
	}

	if err := body.Validate(); err != nil {
		return nil, passerr.Encapsulation("encapsulate.body", "artifact for cluster %d is invalid: %v", c.ID, err)
	}
	return body, nil
}

func argName(i int) string    { return "arg_" + strconv.Itoa(i) }
func retvalName(i int) string { return "retval_" + strconv.Itoa(i) }

func memberHints(g *graph.Graph, c *cluster.Cluster, hints shapehint.Set) shapehint.Set {
	out := make(shapehint.Set)
	for _, id := range c.Members {
		name := g.Node(id).Name()
		if shapes := hints.For(name); shapes != nil {
			out[name] = shapes
		}
	}
	return out
}
