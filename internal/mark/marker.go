// Package mark decides, node by node, whether a node may be offloaded to the
// compiler backend. Marking is pure annotation: the graph is not modified
// and the result for a node depends only on that node.
package mark

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/preserve"
)

// StatefulOps hold or mutate variable storage. They are never clustered;
// the freshness rewrite handles them after encapsulation.
var StatefulOps = map[string]bool{
	"Variable":    true,
	"VariableV2":  true,
	"VarHandleOp": true,
	"Assign":      true,
	"AssignAdd":   true,
	"AssignSub":   true,
}

// Mark is the verdict for one node.
type Mark struct {
	Eligible bool
	Reason   string
}

// Marks maps every live node to its verdict.
type Marks map[graph.NodeID]Mark

// Eligible reports whether the node was marked eligible.
func (m Marks) Eligible(id graph.NodeID) bool {
	return m[id].Eligible
}

// EligibleIDs returns the eligible node ids in ascending order.
func (m Marks) EligibleIDs() []graph.NodeID {
	var ids []graph.NodeID
	for id, mk := range m {
		if mk.Eligible {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Marker applies a backend's capability table to a graph.
type Marker struct {
	caps *Capabilities
}

// NewMarker creates a marker for the given backend.
func NewMarker(caps *Capabilities) *Marker {
	return &Marker{caps: caps}
}

// Capabilities returns the backend table the marker applies.
func (m *Marker) Capabilities() *Capabilities {
	return m.caps
}

// Mark evaluates every live node of g.
func (m *Marker) Mark(ctx context.Context, g *graph.Graph, preserved preserve.Set) Marks {
	logger := ctxlog.FromContext(ctx)
	marks := make(Marks, g.NumNodes())
	eligible := 0
	for _, n := range g.Nodes() {
		var reason string
		if r, ok := preserved[n.ID()]; ok {
			reason = "preserved: " + string(r)
		} else {
			reason = m.Check(n)
		}
		marks[n.ID()] = Mark{Eligible: reason == "", Reason: reason}
		if reason == "" {
			eligible++
		} else {
			logger.Debug("Node not eligible.", "node", n.Name(), "op", n.Op, "reason", reason)
		}
	}
	logger.Debug("Marking complete.", "backend", m.caps.Backend, "nodes", g.NumNodes(), "eligible", eligible)
	return marks
}

// Check runs every node-local test and returns the first failure reason, or
// "" when the node is eligible.
func (m *Marker) Check(n *graph.Node) string {
	if StatefulOps[n.Op] {
		return "stateful op"
	}
	constraints, ok := m.caps.Operations[n.Op]
	if !ok {
		return fmt.Sprintf("op %q not supported by backend %s", n.Op, m.caps.Backend)
	}
	if reason := m.CheckPlacement(n); reason != "" {
		return reason
	}
	for i, t := range n.OutputTypes {
		if t.IsRef() {
			return fmt.Sprintf("output %d has reference type %s", i, t)
		}
		if !m.caps.AcceptsDataType(t) {
			return fmt.Sprintf("output %d has unsupported type %s", i, t)
		}
	}
	for _, c := range constraints {
		if reason := c(n); reason != "" {
			return reason
		}
	}
	return ""
}

// CheckPlacement tests only the node's device against the backend.
func (m *Marker) CheckPlacement(n *graph.Node) string {
	if !m.caps.AcceptsDevice(n.Device) {
		return fmt.Sprintf("device %q not accepted by backend %s", n.Device, m.caps.Backend)
	}
	return ""
}
