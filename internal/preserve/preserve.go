// Package preserve computes the set of nodes that must never be absorbed
// into a cluster because an external contract refers to them by name.
//
// Feed, keep and init nodes, and every node whose op is disabled, are
// preserved as they are. Fetch nodes are handled differently: when possible
// an IdentityN node takes over the fetch name and its consumers, so the
// original producer can still join a cluster while the caller keeps fetching
// the same name.
package preserve

import (
	"context"
	"sort"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Reason records why a node is preserved.
type Reason string

const (
	ReasonFeed     Reason = "feed"
	ReasonKeep     Reason = "keep"
	ReasonInit     Reason = "init"
	ReasonDisabled Reason = "disabled op"
	ReasonFetch    Reason = "fetch"
)

// IdentityNOp is the op of the fan-in identity inserted behind fetch nodes.
const IdentityNOp = "IdentityN"

// fetchSuffix is appended to the name of a fetch node taken over by an IdentityN.
const fetchSuffix = "/clusterpass_fetch"

// Item names the externally visible nodes of a graph. Entries may carry a
// `:port` suffix, which is ignored.
type Item struct {
	Feed  []string
	Fetch []string
	Keep  []string
	Init  []string
}

// Set maps preserved node ids to the first reason they were preserved for.
type Set map[graph.NodeID]Reason

// Has reports whether the node is preserved.
func (s Set) Has(id graph.NodeID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) add(id graph.NodeID, r Reason) {
	if _, ok := s[id]; !ok {
		s[id] = r
	}
}

// IDs returns the preserved ids in ascending order.
func (s Set) IDs() []graph.NodeID {
	ids := make([]graph.NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Compute returns the preserved set for g. It mutates g by inserting an
// IdentityN node behind every eligible fetch node, so it must run before
// marking.
func Compute(ctx context.Context, g *graph.Graph, item Item, disabledOps map[string]bool) (Set, error) {
	logger := ctxlog.FromContext(ctx)
	set := make(Set)

	resolve := func(names []string, kind string) []graph.NodeID {
		var ids []graph.NodeID
		for _, raw := range names {
			name := nodeid.NodeName(raw)
			n, ok := g.NodeByName(name)
			if !ok {
				logger.Debug("Preserved name not present in graph, skipping.", "kind", kind, "name", name)
				continue
			}
			ids = append(ids, n.ID())
		}
		return ids
	}

	for _, id := range resolve(item.Feed, "feed") {
		set.add(id, ReasonFeed)
	}
	for _, id := range resolve(item.Keep, "keep") {
		set.add(id, ReasonKeep)
	}
	for _, id := range resolve(item.Init, "init") {
		set.add(id, ReasonInit)
	}

	disabled := make(map[graph.NodeID]bool)
	for _, n := range g.Nodes() {
		if disabledOps[n.Op] {
			disabled[n.ID()] = true
			set.add(n.ID(), ReasonDisabled)
		}
	}

	fetchIDs := resolve(item.Fetch, "fetch")
	sort.Slice(fetchIDs, func(i, j int) bool {
		return g.Node(fetchIDs[i]).Name() < g.Node(fetchIDs[j]).Name()
	})
	seen := make(map[graph.NodeID]bool)
	for _, id := range fetchIDs {
		if disabled[id] || seen[id] {
			continue
		}
		seen[id] = true

		n := g.Node(id)
		if n.NumOutputs() == 0 || n.HasRefOutput() {
			logger.Debug("Fetch node cannot be wrapped, preserving it directly.", "node", n.Name(), "outputs", n.NumOutputs())
			set.add(id, ReasonFetch)
			continue
		}

		identity, err := AddIdentityN(g, id)
		if err != nil {
			return nil, err
		}
		logger.Debug("Inserted fetch identity.", "fetch", g.Node(identity).Name(), "producer", n.Name())
		set.add(identity, ReasonFetch)
	}

	logger.Debug("Preserved set computed.", "count", len(set))
	return set, nil
}

// AddIdentityN hands the name and all consumers of node id to a new IdentityN
// node that forwards every output slot unchanged. The producer is renamed.
// It returns the id of the new node.
func AddIdentityN(g *graph.Graph, id graph.NodeID) (graph.NodeID, error) {
	n := g.Node(id)
	name := n.Name()
	consumers := n.OutEdges()

	if err := g.Rename(id, g.UniqueName(name+fetchSuffix)); err != nil {
		return 0, err
	}
	identity, err := g.AddNode(graph.NodeDef{
		Name:        name,
		Op:          IdentityNOp,
		Device:      n.Device,
		Attrs:       map[string]cty.Value{"T": graph.TypeList(n.OutputTypes)},
		OutputTypes: n.OutputTypes,
	})
	if err != nil {
		return 0, err
	}

	for _, e := range consumers {
		g.RemoveEdge(e)
		if e.IsControl() {
			_, err = g.AddControlEdge(identity.ID(), e.Dst)
		} else {
			_, err = g.AddEdge(identity.ID(), e.SrcOutput, e.Dst, e.DstInput)
		}
		if err != nil {
			return 0, err
		}
	}
	for slot := range n.NumOutputs() {
		if _, err := g.AddEdge(id, slot, identity.ID(), slot); err != nil {
			return 0, err
		}
	}
	return identity.ID(), nil
}
