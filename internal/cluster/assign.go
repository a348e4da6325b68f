package cluster

import (
	"context"
	"sort"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/mark"
)

// AssignOptions tune which edges connect eligible nodes.
type AssignOptions struct {
	// AllowControlEdges lets a control edge between two eligible nodes join
	// their clusters. Data edges always do.
	AllowControlEdges bool
}

// assigner is a union-find over eligible nodes that also tracks each
// component's members so merges can be checked against the contracted graph.
type assigner struct {
	g       *graph.Graph
	marks   mark.Marks
	parent  map[graph.NodeID]graph.NodeID
	members map[graph.NodeID][]graph.NodeID
}

func (a *assigner) find(n graph.NodeID) graph.NodeID {
	for a.parent[n] != n {
		a.parent[n] = a.parent[a.parent[n]]
		n = a.parent[n]
	}
	return n
}

// union merges two roots, keeping the smaller id as the new root.
func (a *assigner) union(ra, rb graph.NodeID) {
	if rb < ra {
		ra, rb = rb, ra
	}
	a.parent[rb] = ra
	a.members[ra] = append(a.members[ra], a.members[rb]...)
	delete(a.members, rb)
}

// component returns the root of an eligible node, or the node itself when
// it is outside every cluster.
func (a *assigner) component(n graph.NodeID) graph.NodeID {
	if _, ok := a.parent[n]; ok {
		return a.find(n)
	}
	return n
}

// reachesVia reports whether some path leaves component from, passes through
// at least one node outside both from and to, and arrives in to. Merging two
// components connected that way would put a cycle through the merged cluster.
func (a *assigner) reachesVia(from, to graph.NodeID) bool {
	var queue []graph.NodeID
	visited := make(map[graph.NodeID]bool)

	push := func(n graph.NodeID) {
		c := a.component(n)
		if c == from || c == to || visited[c] {
			return
		}
		visited[c] = true
		queue = append(queue, c)
	}
	expand := func(c graph.NodeID) []graph.NodeID {
		if ms, ok := a.members[c]; ok {
			return ms
		}
		return []graph.NodeID{c}
	}

	for _, m := range a.members[from] {
		for _, e := range a.g.Node(m).OutEdges() {
			push(e.Dst)
		}
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, m := range expand(c) {
			for _, e := range a.g.Node(m).OutEdges() {
				if a.component(e.Dst) == to {
					return true
				}
				push(e.Dst)
			}
		}
	}
	return false
}

// Assign groups eligible nodes into clusters. Two eligible nodes end up in
// the same cluster when an edge path of eligible, same-device nodes connects
// them, unless joining them would make the contracted graph cyclic. Cluster
// ids are numbered from zero in ascending order of each cluster's smallest
// member id.
func Assign(ctx context.Context, g *graph.Graph, marks mark.Marks, opts AssignOptions) (*Table, error) {
	logger := ctxlog.FromContext(ctx)

	a := &assigner{
		g:       g,
		marks:   marks,
		parent:  make(map[graph.NodeID]graph.NodeID),
		members: make(map[graph.NodeID][]graph.NodeID),
	}
	for _, id := range marks.EligibleIDs() {
		if g.Node(id) == nil {
			continue
		}
		a.parent[id] = id
		a.members[id] = []graph.NodeID{id}
	}

	rejected := 0
	for _, e := range g.Edges() {
		if e.IsControl() && !opts.AllowControlEdges {
			continue
		}
		if _, ok := a.parent[e.Src]; !ok {
			continue
		}
		if _, ok := a.parent[e.Dst]; !ok {
			continue
		}
		if g.Node(e.Src).Device != g.Node(e.Dst).Device {
			continue
		}
		ra, rb := a.find(e.Src), a.find(e.Dst)
		if ra == rb {
			continue
		}
		if a.reachesVia(ra, rb) || a.reachesVia(rb, ra) {
			rejected++
			logger.Debug("Merge rejected, it would create a cycle.", "src", g.Node(e.Src).Name(), "dst", g.Node(e.Dst).Name())
			continue
		}
		a.union(ra, rb)
	}

	roots := make([]graph.NodeID, 0, len(a.members))
	for root := range a.members {
		roots = append(roots, root)
	}
	// The root is always the smallest member id.
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	table := NewTable()
	for i, root := range roots {
		device := g.Node(root).Device
		for _, n := range a.members[root] {
			if err := table.Add(ID(i), n, device); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("Cluster assignment complete.", "clusters", table.Len(), "rejected_merges", rejected)
	return table, nil
}
