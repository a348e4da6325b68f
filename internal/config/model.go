package config

// Model is the unified, format-agnostic representation of the pass
// configuration.
type Model struct {
	Pipeline Pipeline
	Backends []*Backend
	Deassign Deassign
	Dump     Dump
	Store    Store
}

// Pipeline holds the orchestrator settings.
type Pipeline struct {
	Enabled bool
	// Backend names the capability table used for marking. It must match a
	// registered backend.
	Backend           string
	DisabledOps       []string
	ShapeHints        string
	AllowControlEdges bool
}

// Backend declares an additional compiler backend.
type Backend struct {
	Name      string
	Ops       []string
	Devices   []string
	DataTypes []string
}

// Deassign holds the cluster rejection thresholds.
type Deassign struct {
	MinClusterSize   int
	MinNontrivialOps int
	// ComputeOps, when non-empty, requires every cluster to contain at
	// least one of these ops.
	ComputeOps []string
}

// Dump configures diagnostic snapshots between phases.
type Dump struct {
	Dir string
	// Phases limits dumping to the named phases. Empty dumps all phases.
	Phases      []string
	SocketIOURL string
}

// Store configures artifact persistence. An empty Path with InMemory
// false keeps artifacts in process memory only.
type Store struct {
	Path     string
	InMemory bool
}

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "CPU"

// Default returns the configuration used when no file is given.
func Default() *Model {
	return &Model{
		Pipeline: Pipeline{Enabled: true, Backend: DefaultBackend},
		Deassign: Deassign{MinClusterSize: 2, MinNontrivialOps: 1},
	}
}

// DisabledOpSet returns the disabled ops as a lookup set.
func (p Pipeline) DisabledOpSet() map[string]bool {
	set := make(map[string]bool, len(p.DisabledOps))
	for _, op := range p.DisabledOps {
		set[op] = true
	}
	return set
}
