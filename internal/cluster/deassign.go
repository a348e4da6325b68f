package cluster

import (
	"context"
	"fmt"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
)

// Policy decides whether a cluster is worth offloading.
type Policy interface {
	// Keep returns true to keep the cluster, or false and a reason.
	Keep(g *graph.Graph, c *Cluster) (bool, string)
}

// DefaultTrivialOps do no real work and do not count toward a cluster's benefit.
var DefaultTrivialOps = map[string]bool{
	"Const":       true,
	"Identity":    true,
	"IdentityN":   true,
	"NoOp":        true,
	"Placeholder": true,
}

// SizePolicy keeps clusters that are large enough and do enough real work.
type SizePolicy struct {
	// MinSize is the minimum member count.
	MinSize int
	// MinNonTrivial is the minimum number of members whose op is not trivial.
	MinNonTrivial int
	// TrivialOps lists ops that do not count toward MinNonTrivial.
	TrivialOps map[string]bool
	// ComputeOps, when non-empty, requires at least one member with one of
	// these ops.
	ComputeOps map[string]bool
}

// DefaultPolicy keeps clusters of two or more nodes with at least one
// non-trivial op.
func DefaultPolicy() SizePolicy {
	return SizePolicy{
		MinSize:       2,
		MinNonTrivial: 1,
		TrivialOps:    DefaultTrivialOps,
	}
}

// Keep implements Policy.
func (p SizePolicy) Keep(g *graph.Graph, c *Cluster) (bool, string) {
	if c.Size() < p.MinSize {
		return false, fmt.Sprintf("size %d below minimum %d", c.Size(), p.MinSize)
	}

	nonTrivial := 0
	hasCompute := len(p.ComputeOps) == 0
	for _, id := range c.Members {
		op := g.Node(id).Op
		if !p.TrivialOps[op] {
			nonTrivial++
		}
		if p.ComputeOps[op] {
			hasCompute = true
		}
	}
	if nonTrivial < p.MinNonTrivial {
		return false, fmt.Sprintf("%d non-trivial ops, need %d", nonTrivial, p.MinNonTrivial)
	}
	if !hasCompute {
		return false, "no compute-heavy op"
	}
	return true, ""
}

// Deassign removes every cluster the policy rejects. Surviving clusters keep
// their ids. It returns the ids that were removed, ascending.
func Deassign(ctx context.Context, g *graph.Graph, t *Table, policy Policy) []ID {
	logger := ctxlog.FromContext(ctx)
	var removed []ID
	for _, c := range t.Clusters() {
		keep, reason := policy.Keep(g, c)
		if keep {
			continue
		}
		logger.Debug("Cluster deassigned.", "cluster", c.ID, "size", c.Size(), "reason", reason)
		removed = append(removed, c.ID)
		t.Remove(c.ID)
	}
	logger.Debug("Deassignment complete.", "removed", len(removed), "remaining", t.Len())
	return removed
}
