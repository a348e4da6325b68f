package graphio

import (
	"encoding/json"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
)

// SlotSpec is the serialized encapsulate.Slot.
type SlotSpec struct {
	Index  int    `json:"index"`
	Node   string `json:"node"`
	Output int    `json:"output"`
	Type   string `json:"type"`
}

// ArtifactSpec is the serialized encapsulate.Artifact.
type ArtifactSpec struct {
	RunIndex   int64      `json:"run_index"`
	ClusterID  int        `json:"cluster_id"`
	Name       string     `json:"name"`
	Backend    string     `json:"backend,omitempty"`
	Device     string     `json:"device,omitempty"`
	Inputs     []SlotSpec `json:"inputs"`
	Outputs    []SlotSpec `json:"outputs"`
	ShapeHints string     `json:"shape_hints,omitempty"`
	Nodes      []NodeSpec `json:"nodes"`
}

func slotSpecs(slots []encapsulate.Slot) []SlotSpec {
	out := make([]SlotSpec, len(slots))
	for i, s := range slots {
		out[i] = SlotSpec{Index: s.Index, Node: s.Node, Output: s.Output, Type: string(s.Type)}
	}
	return out
}

func slots(specs []SlotSpec) []encapsulate.Slot {
	out := make([]encapsulate.Slot, len(specs))
	for i, s := range specs {
		out[i] = encapsulate.Slot{Index: s.Index, Node: s.Node, Output: s.Output, Type: graph.DataType(s.Type)}
	}
	return out
}

// ArtifactToSpec converts an artifact to its serialized form.
func ArtifactToSpec(a *encapsulate.Artifact) ArtifactSpec {
	return ArtifactSpec{
		RunIndex:   a.Key.RunIndex,
		ClusterID:  int(a.Key.ClusterID),
		Name:       a.Name,
		Backend:    a.Backend,
		Device:     a.Device,
		Inputs:     slotSpecs(a.Inputs),
		Outputs:    slotSpecs(a.Outputs),
		ShapeHints: a.ShapeHints.String(),
		Nodes:      Specs(a.Graph),
	}
}

// EncodeArtifact writes an artifact as indented JSON.
func EncodeArtifact(a *encapsulate.Artifact) ([]byte, error) {
	return json.MarshalIndent(ArtifactToSpec(a), "", "  ")
}

// DecodeArtifact parses the form written by EncodeArtifact.
func DecodeArtifact(data []byte) (*encapsulate.Artifact, error) {
	var doc ArtifactSpec
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, passerr.GraphConstruction("graphio.DecodeArtifact", "%v", err)
	}
	body, err := Build(doc.Nodes, nil)
	if err != nil {
		return nil, err
	}
	hints, err := shapehint.Parse(doc.ShapeHints)
	if err != nil {
		return nil, err
	}
	return &encapsulate.Artifact{
		Key:        encapsulate.Key{RunIndex: doc.RunIndex, ClusterID: cluster.ID(doc.ClusterID)},
		Name:       doc.Name,
		Backend:    doc.Backend,
		Device:     doc.Device,
		Graph:      body,
		Inputs:     slots(doc.Inputs),
		Outputs:    slots(doc.Outputs),
		ShapeHints: hints,
	}, nil
}
