package graph

import (
	"fmt"

	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/zclconf/go-cty/cty"
)

// Graph is an arena of nodes connected by data and control edges.
type Graph struct {
	nodes  []*Node
	byName map[string]NodeID
	live   int

	// Attrs holds graph-level attributes such as the processed marker.
	Attrs map[string]cty.Value
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byName: make(map[string]NodeID),
		Attrs:  make(map[string]cty.Value),
	}
}

// AddNode inserts a node and assigns it the next free id.
func (g *Graph) AddNode(def NodeDef) (*Node, error) {
	if def.Name == "" {
		return nil, passerr.GraphConstruction("graph.AddNode", "node name cannot be empty")
	}
	if def.Op == "" {
		return nil, passerr.GraphConstruction("graph.AddNode", "node %q has no op", def.Name)
	}
	if _, exists := g.byName[def.Name]; exists {
		return nil, passerr.GraphConstruction("graph.AddNode", "duplicate node name %q", def.Name)
	}

	attrs := make(map[string]cty.Value, len(def.Attrs))
	for k, v := range def.Attrs {
		attrs[k] = v
	}
	outputs := make([]DataType, len(def.OutputTypes))
	copy(outputs, def.OutputTypes)

	n := &Node{
		id:          NodeID(len(g.nodes)),
		name:        def.Name,
		Op:          def.Op,
		Device:      def.Device,
		Attrs:       attrs,
		OutputTypes: outputs,
	}
	g.nodes = append(g.nodes, n)
	g.byName[n.name] = n.id
	g.live++
	return n, nil
}

// Node returns the node with the given id, or nil if it does not exist.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NodeByName looks a node up by its unique name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns all live nodes in ascending id order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, g.live)
	for _, n := range g.nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// NumNodes returns the number of live nodes.
func (g *Graph) NumNodes() int { return g.live }

// Edges returns every edge ordered by (Src, SrcOutput, Dst, DstInput).
func (g *Graph) Edges() []*Edge {
	var edges []*Edge
	for _, n := range g.nodes {
		if n != nil {
			edges = append(edges, n.out...)
		}
	}
	sortEdges(edges)
	return edges
}

// AddEdge connects output srcOutput of src to input dstInput of dst.
func (g *Graph) AddEdge(src NodeID, srcOutput int, dst NodeID, dstInput int) (*Edge, error) {
	const op = "graph.AddEdge"
	s, d := g.Node(src), g.Node(dst)
	if s == nil {
		return nil, passerr.GraphConstruction(op, "source node %d not found", src)
	}
	if d == nil {
		return nil, passerr.GraphConstruction(op, "destination node %d not found", dst)
	}
	if src == dst {
		return nil, passerr.GraphConstruction(op, "self-referential edge not allowed on %q", s.name)
	}
	if srcOutput < 0 || srcOutput >= s.NumOutputs() {
		return nil, passerr.GraphConstruction(op, "node %q has no output slot %d", s.name, srcOutput)
	}
	if dstInput < 0 {
		return nil, passerr.GraphConstruction(op, "invalid input slot %d on %q", dstInput, d.name)
	}
	if existing := d.InputEdge(dstInput); existing != nil {
		return nil, passerr.GraphConstruction(op, "input slot %d of %q is already fed by node %d", dstInput, d.name, existing.Src)
	}

	e := &Edge{Src: src, SrcOutput: srcOutput, Dst: dst, DstInput: dstInput}
	s.out = append(s.out, e)
	d.in = append(d.in, e)
	return e, nil
}

// AddControlEdge adds an ordering edge from src to dst. An existing control
// edge between the same pair is returned unchanged.
func (g *Graph) AddControlEdge(src, dst NodeID) (*Edge, error) {
	const op = "graph.AddControlEdge"
	s, d := g.Node(src), g.Node(dst)
	if s == nil {
		return nil, passerr.GraphConstruction(op, "source node %d not found", src)
	}
	if d == nil {
		return nil, passerr.GraphConstruction(op, "destination node %d not found", dst)
	}
	if src == dst {
		return nil, passerr.GraphConstruction(op, "self-referential edge not allowed on %q", s.name)
	}
	for _, e := range s.out {
		if e.IsControl() && e.Dst == dst {
			return e, nil
		}
	}

	e := &Edge{Src: src, SrcOutput: ControlSlot, Dst: dst, DstInput: ControlSlot}
	s.out = append(s.out, e)
	d.in = append(d.in, e)
	return e, nil
}

// RemoveEdge detaches an edge from both of its endpoints.
func (g *Graph) RemoveEdge(e *Edge) {
	if s := g.Node(e.Src); s != nil {
		s.removeOut(e)
	}
	if d := g.Node(e.Dst); d != nil {
		d.removeIn(e)
	}
}

// RemoveNode deletes a node and all of its incident edges. Its id is not reused.
func (g *Graph) RemoveNode(id NodeID) {
	n := g.Node(id)
	if n == nil {
		return
	}
	for _, e := range append([]*Edge(nil), n.in...) {
		g.RemoveEdge(e)
	}
	for _, e := range append([]*Edge(nil), n.out...) {
		g.RemoveEdge(e)
	}
	delete(g.byName, n.name)
	g.nodes[id] = nil
	g.live--
}

// Rename changes a node's name, keeping the name index consistent.
func (g *Graph) Rename(id NodeID, name string) error {
	n := g.Node(id)
	if n == nil {
		return passerr.GraphConstruction("graph.Rename", "node %d not found", id)
	}
	if name == n.name {
		return nil
	}
	if _, exists := g.byName[name]; exists {
		return passerr.GraphConstruction("graph.Rename", "duplicate node name %q", name)
	}
	delete(g.byName, n.name)
	n.name = name
	g.byName[name] = id
	return nil
}

// UniqueName returns base if no node carries it, otherwise the first free
// base_N for N = 1, 2, ...
func (g *Graph) UniqueName(base string) string {
	if _, taken := g.byName[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, taken := g.byName[candidate]; !taken {
			return candidate
		}
	}
}

// Clone returns a deep copy. Node ids, including removed slots, are preserved.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:  make([]*Node, len(g.nodes)),
		byName: make(map[string]NodeID, len(g.byName)),
		live:   g.live,
		Attrs:  make(map[string]cty.Value, len(g.Attrs)),
	}
	for k, v := range g.Attrs {
		c.Attrs[k] = v
	}
	for i, n := range g.nodes {
		if n == nil {
			continue
		}
		attrs := make(map[string]cty.Value, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		c.nodes[i] = &Node{
			id:          n.id,
			name:        n.name,
			Op:          n.Op,
			Device:      n.Device,
			Attrs:       attrs,
			OutputTypes: append([]DataType(nil), n.OutputTypes...),
		}
		c.byName[n.name] = n.id
	}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for _, e := range n.out {
			ce := *e
			c.nodes[e.Src].out = append(c.nodes[e.Src].out, &ce)
			c.nodes[e.Dst].in = append(c.nodes[e.Dst].in, &ce)
		}
	}
	return c
}

// Consumers returns the distinct ids of nodes fed by n over any edge, ascending.
func (g *Graph) Consumers(id NodeID) []NodeID {
	n := g.Node(id)
	if n == nil {
		return nil
	}
	seen := make(map[NodeID]bool)
	var ids []NodeID
	for _, e := range n.OutEdges() {
		if !seen[e.Dst] {
			seen[e.Dst] = true
			ids = append(ids, e.Dst)
		}
	}
	sortIDs(ids)
	return ids
}
