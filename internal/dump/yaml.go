package dump

import (
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/nodeid"
	"gopkg.in/yaml.v3"
)

// Document is the structured form of a snapshot, shared by the YAML file
// output and the socket.io event payload.
type Document struct {
	Invocation string            `yaml:"invocation" json:"invocation"`
	Run        int64             `yaml:"run" json:"run"`
	Phase      string            `yaml:"phase" json:"phase"`
	Nodes      []DocumentNode    `yaml:"nodes" json:"nodes"`
	Clusters   []DocumentCluster `yaml:"clusters,omitempty" json:"clusters,omitempty"`
}

// DocumentNode describes one node. Attribute values are rendered as HCL
// expressions.
type DocumentNode struct {
	ID       int               `yaml:"id" json:"id"`
	Name     string            `yaml:"name" json:"name"`
	Op       string            `yaml:"op" json:"op"`
	Device   string            `yaml:"device,omitempty" json:"device,omitempty"`
	Inputs   []string          `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs  []string          `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Eligible *bool             `yaml:"eligible,omitempty" json:"eligible,omitempty"`
	Reason   string            `yaml:"reason,omitempty" json:"reason,omitempty"`
	Cluster  *int              `yaml:"cluster,omitempty" json:"cluster,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// DocumentCluster lists the members of one cluster by name.
type DocumentCluster struct {
	ID      int      `yaml:"id" json:"id"`
	Device  string   `yaml:"device,omitempty" json:"device,omitempty"`
	Members []string `yaml:"members" json:"members"`
}

// NewDocument builds the structured form of s.
func NewDocument(s Snapshot) Document {
	doc := Document{Invocation: s.InvocationID, Run: s.RunIndex, Phase: s.Phase}

	for _, n := range s.Graph.Nodes() {
		dn := DocumentNode{ID: int(n.ID()), Name: n.Name(), Op: n.Op, Device: n.Device}
		for _, e := range n.InEdges() {
			src := s.Graph.Node(e.Src).Name()
			if e.IsControl() {
				dn.Inputs = append(dn.Inputs, nodeid.NewControlRef(src).String())
			} else {
				dn.Inputs = append(dn.Inputs, nodeid.NewRef(src, e.SrcOutput).String())
			}
		}
		for _, t := range n.OutputTypes {
			dn.Outputs = append(dn.Outputs, string(t))
		}
		if m, ok := s.Marks[n.ID()]; ok {
			eligible := m.Eligible
			dn.Eligible = &eligible
			dn.Reason = m.Reason
		}
		if s.Clusters != nil {
			if id, ok := s.Clusters.ClusterOf(n.ID()); ok {
				c := int(id)
				dn.Cluster = &c
			}
		}
		if names := n.AttrNames(); len(names) > 0 {
			dn.Attrs = make(map[string]string, len(names))
			for _, name := range names {
				v, _ := n.Attr(name)
				dn.Attrs[name] = strings.TrimSpace(string(hclwrite.TokensForValue(v).Bytes()))
			}
		}
		doc.Nodes = append(doc.Nodes, dn)
	}

	if s.Clusters != nil {
		for _, c := range s.Clusters.Clusters() {
			doc.Clusters = append(doc.Clusters, DocumentCluster{
				ID:      int(c.ID),
				Device:  c.Device,
				Members: nodeNames(s.Graph, c.Members),
			})
		}
	}
	return doc
}

// WriteYAML renders the snapshot as YAML.
func WriteYAML(w io.Writer, s Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(s)); err != nil {
		return err
	}
	return enc.Close()
}

// nodeNames skips ids that no longer exist.
func nodeNames(g *graph.Graph, ids []graph.NodeID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := g.Node(id); n != nil {
			names = append(names, n.Name())
		}
	}
	return names
}
