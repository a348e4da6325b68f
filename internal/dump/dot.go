package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
)

// dotEscaper quotes text for a DOT double-quoted string in a single pass.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func dotEscape(s string) string {
	return dotEscaper.Replace(s)
}

func dotNode(sb *strings.Builder, indent string, s Snapshot, n *graph.Node) {
	label := fmt.Sprintf("%s\\n%s", dotEscape(n.Name()), dotEscape(n.Op))
	color := "white"
	switch {
	case n.Op == encapsulate.CallOp:
		color = "lightblue"
	case s.Marks != nil && s.Marks.Eligible(n.ID()):
		color = "lightyellow"
	}
	if m, ok := s.Marks[n.ID()]; ok && !m.Eligible {
		label += "\\n(" + dotEscape(m.Reason) + ")"
	}
	fmt.Fprintf(sb, "%sn%d [label=\"%s\", fillcolor=\"%s\", style=\"rounded,filled\"];\n", indent, n.ID(), label, color)
}

// WriteDOT renders the snapshot as a Graphviz digraph. Clusters become
// subgraphs; control edges are dashed.
func WriteDOT(w io.Writer, s Snapshot) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph \"%s_%d\" {\n", dotEscape(s.Phase), s.RunIndex)
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, fontname=\"Arial\"];\n")
	sb.WriteString("  edge [fontname=\"Arial\", fontsize=10];\n\n")

	inCluster := make(map[graph.NodeID]bool)
	if s.Clusters != nil {
		for _, c := range s.Clusters.Clusters() {
			writeCluster(&sb, s, c)
			for _, id := range c.Members {
				inCluster[id] = true
			}
		}
	}

	for _, n := range s.Graph.Nodes() {
		if !inCluster[n.ID()] {
			dotNode(&sb, "  ", s, n)
		}
	}
	sb.WriteString("\n")

	for _, e := range s.Graph.Edges() {
		if e.IsControl() {
			fmt.Fprintf(&sb, "  n%d -> n%d [style=dashed];\n", e.Src, e.Dst)
			continue
		}
		fmt.Fprintf(&sb, "  n%d -> n%d [label=\"%d:%d\"];\n", e.Src, e.Dst, e.SrcOutput, e.DstInput)
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeCluster(sb *strings.Builder, s Snapshot, c *cluster.Cluster) {
	fmt.Fprintf(sb, "  subgraph cluster_%d {\n", c.ID)
	label := fmt.Sprintf("Cluster %d", c.ID)
	if c.Device != "" {
		label += "\\n" + dotEscape(c.Device)
	}
	fmt.Fprintf(sb, "    label=\"%s\";\n", label)
	sb.WriteString("    style=filled;\n")
	sb.WriteString("    color=lightgrey;\n")
	for _, id := range c.Members {
		if n := s.Graph.Node(id); n != nil {
			dotNode(sb, "    ", s, n)
		}
	}
	sb.WriteString("  }\n\n")
}
