package graph

import (
	"sort"

	"github.com/specialistvlad/clusterpass/internal/passerr"
)

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Validate checks structural integrity: edge endpoints exist, output slots
// are in range, data input slots are contiguous from zero, and the graph is
// acyclic.
func (g *Graph) Validate() error {
	const op = "graph.Validate"
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		slots := make(map[int]bool)
		for _, e := range n.in {
			src := g.Node(e.Src)
			if src == nil {
				return passerr.GraphConstruction(op, "node %q has an input from missing node %d", n.name, e.Src)
			}
			if e.IsControl() {
				continue
			}
			if e.SrcOutput >= src.NumOutputs() {
				return passerr.GraphConstruction(op, "edge into %q reads output %d of %q which has %d outputs", n.name, e.SrcOutput, src.name, src.NumOutputs())
			}
			if slots[e.DstInput] {
				return passerr.GraphConstruction(op, "input slot %d of %q is fed twice", e.DstInput, n.name)
			}
			slots[e.DstInput] = true
		}
		for i := 0; i < len(slots); i++ {
			if !slots[i] {
				return passerr.GraphConstruction(op, "input slot %d of %q is not connected", i, n.name)
			}
		}
		for _, e := range n.out {
			if g.Node(e.Dst) == nil {
				return passerr.GraphConstruction(op, "node %q has an output to missing node %d", n.name, e.Dst)
			}
		}
	}
	return g.DetectCycles()
}

// DetectCycles returns an error naming a node on a cycle, if one exists.
func (g *Graph) DetectCycles() error {
	// Depth-first search with temporary (on stack) and permanent (done) marks.
	permanent := make(map[NodeID]bool)
	temporary := make(map[NodeID]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return passerr.GraphConstruction("graph.DetectCycles", "cycle detected involving node %q", n.name)
		}
		temporary[n.id] = true
		for _, e := range n.OutEdges() {
			if err := visit(g.nodes[e.Dst]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, n := range g.Nodes() {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// TopoOrder returns live node ids in a topological order. Among ready nodes
// the smallest id goes first, so the order is deterministic.
func (g *Graph) TopoOrder() ([]NodeID, error) {
	indegree := make(map[NodeID]int, g.live)
	var ready []NodeID
	for _, n := range g.Nodes() {
		indegree[n.id] = len(n.in)
		if len(n.in) == 0 {
			ready = append(ready, n.id)
		}
	}

	order := make([]NodeID, 0, g.live)
	for len(ready) > 0 {
		sortIDs(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, e := range g.nodes[id].out {
			indegree[e.Dst]--
			if indegree[e.Dst] == 0 {
				ready = append(ready, e.Dst)
			}
		}
	}
	if len(order) != g.live {
		return nil, passerr.GraphConstruction("graph.TopoOrder", "graph contains a cycle")
	}
	return order, nil
}
