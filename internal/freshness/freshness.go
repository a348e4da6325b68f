// Package freshness rewrites variable nodes into tracked variants that keep
// a generation counter. Compiled call nodes may cache results keyed on their
// inputs; the counter lets them notice when a variable was written through
// a path they cannot observe.
//
// The rewrite runs after encapsulation so that it sees each variable's final
// consumers: call nodes are trusted, tracked assigns are trusted and bump
// the generation, and any other data consumer is recorded as untrusted.
package freshness

import (
	"context"
	"sort"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/preserve"
	"github.com/zclconf/go-cty/cty"
)

// Op and attribute names written by the rewrite.
const (
	TrackedVariableOp = "TrackedVariable"

	AttrGeneration  = "freshness_generation"
	AttrUntrusted   = "untrusted_consumers"
	AttrJustLooking = "just_looking"
	AttrOriginalOp  = "original_op"
	AttrBumps       = "bumps_generation"
)

// VariableOps are the ops rewritten into TrackedVariable.
var VariableOps = map[string]bool{
	"Variable":   true,
	"VariableV2": true,
}

// TrackedAssigns maps assign ops to their tracking-aware replacements.
var TrackedAssigns = map[string]string{
	"Assign":    "TrackedAssign",
	"AssignAdd": "TrackedAssignAdd",
	"AssignSub": "TrackedAssignSub",
}

// PlacementChecker reports why a node cannot run on the backend's device,
// or "" when it can.
type PlacementChecker interface {
	CheckPlacement(n *graph.Node) string
}

// Result lists what was rewritten, by node name.
type Result struct {
	Variables []string
	Assigns   []string
}

// Rewrite replaces every non-preserved, placeable variable with a tracked
// variable and every assign writing to one with a tracked assign.
func Rewrite(ctx context.Context, g *graph.Graph, preserved preserve.Set, placement PlacementChecker) Result {
	logger := ctxlog.FromContext(ctx)
	var res Result

	for _, n := range g.Nodes() {
		if !VariableOps[n.Op] {
			continue
		}
		if preserved.Has(n.ID()) {
			logger.Debug("Variable is preserved, not tracking it.", "node", n.Name())
			continue
		}
		if reason := placement.CheckPlacement(n); reason != "" {
			logger.Debug("Variable cannot be tracked.", "node", n.Name(), "reason", reason)
			continue
		}

		var untrusted []string
		seen := make(map[graph.NodeID]bool)
		for _, e := range n.OutEdges() {
			if e.IsControl() || seen[e.Dst] {
				continue
			}
			seen[e.Dst] = true
			consumer := g.Node(e.Dst)
			switch {
			case consumer.Op == encapsulate.CallOp:
			case isAssignTarget(consumer, e) && !preserved.Has(consumer.ID()):
				rewriteAssign(consumer)
				res.Assigns = append(res.Assigns, consumer.Name())
			case isTrackedAssign(consumer):
			default:
				untrusted = append(untrusted, consumer.Name())
			}
		}
		sort.Strings(untrusted)

		n.SetAttr(AttrOriginalOp, cty.StringVal(n.Op))
		n.Op = TrackedVariableOp
		n.SetAttr(AttrGeneration, cty.NumberIntVal(0))
		n.SetAttr(AttrUntrusted, graph.StringList(untrusted))
		n.SetAttr(AttrJustLooking, cty.BoolVal(len(untrusted) == 0))
		res.Variables = append(res.Variables, n.Name())
		logger.Debug("Variable tracked.", "node", n.Name(), "untrusted_consumers", len(untrusted))
	}

	sort.Strings(res.Assigns)
	logger.Debug("Freshness rewrite complete.", "variables", len(res.Variables), "assigns", len(res.Assigns))
	return res
}

// isAssignTarget reports whether e feeds the reference slot of an assign.
func isAssignTarget(n *graph.Node, e *graph.Edge) bool {
	_, ok := TrackedAssigns[n.Op]
	return ok && e.DstInput == 0
}

func isTrackedAssign(n *graph.Node) bool {
	for _, tracked := range TrackedAssigns {
		if n.Op == tracked {
			return true
		}
	}
	return false
}

func rewriteAssign(n *graph.Node) {
	n.SetAttr(AttrOriginalOp, cty.StringVal(n.Op))
	n.Op = TrackedAssigns[n.Op]
	n.SetAttr(AttrBumps, cty.True)
}
