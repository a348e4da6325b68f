package encapsulate

import (
	"fmt"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
)

// Op names used in the rewritten graph and in artifact bodies.
const (
	CallOp   = "ClusterCall"
	ArgOp    = "_Arg"
	RetvalOp = "_Retval"
)

// Call node attribute names.
const (
	AttrClusterID = "cluster_id"
	AttrRunIndex  = "run_index"
	AttrFunction  = "function"
	AttrTin       = "Tin"
	AttrTout      = "Tout"
	AttrIndex     = "index"
	AttrType      = "T"
)

// Key identifies an artifact across pipeline runs in one process.
type Key struct {
	RunIndex  int64
	ClusterID cluster.ID
}

func (k Key) String() string {
	return fmt.Sprintf("run-%d/cluster-%d", k.RunIndex, k.ClusterID)
}

// FunctionName returns the artifact and call node base name for a key.
func FunctionName(k Key) string {
	return fmt.Sprintf("cluster_%d_%d", k.RunIndex, k.ClusterID)
}

// Slot describes one argument or result of an artifact.
type Slot struct {
	Index int
	// Node and Output name the tensor in the main graph before rewriting.
	Node   string
	Output int
	Type   graph.DataType
}

// Artifact is the callable subgraph produced for one cluster.
type Artifact struct {
	Key     Key
	Name    string
	Backend string
	Device  string
	// Graph holds the members, their internal edges, one _Arg node per
	// input slot and one _Retval node per output slot.
	Graph   *graph.Graph
	Inputs  []Slot
	Outputs []Slot
	// ShapeHints holds the configured hints for member nodes only.
	ShapeHints shapehint.Set
}

// Tin returns the input slot types in order.
func (a *Artifact) Tin() []graph.DataType {
	return slotTypes(a.Inputs)
}

// Tout returns the output slot types in order.
func (a *Artifact) Tout() []graph.DataType {
	return slotTypes(a.Outputs)
}

func slotTypes(slots []Slot) []graph.DataType {
	types := make([]graph.DataType, len(slots))
	for i, s := range slots {
		types[i] = s.Type
	}
	return types
}
