package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Graph documents ---

// graphFile is the top-level structure of a graph document.
type graphFile struct {
	Graph *graphBlock  `hcl:"graph,block"`
	Nodes []*nodeBlock `hcl:"node,block"`
	Item  *itemBlock   `hcl:"item,block"`
}

// graphBlock holds graph-level attributes.
type graphBlock struct {
	Attrs *cty.Value `hcl:"attrs,optional"`
}

// nodeBlock represents a `node "<Op>" "<name>"` block.
type nodeBlock struct {
	Op      string     `hcl:"op,label"`
	Name    string     `hcl:"name,label"`
	Device  string     `hcl:"device,optional"`
	Inputs  []string   `hcl:"inputs,optional"`
	Outputs []string   `hcl:"outputs,optional"`
	Attrs   *cty.Value `hcl:"attrs,optional"`
}

// itemBlock names the externally visible nodes.
type itemBlock struct {
	Feed  []string `hcl:"feed,optional"`
	Fetch []string `hcl:"fetch,optional"`
	Keep  []string `hcl:"keep,optional"`
	Init  []string `hcl:"init,optional"`
}

// --- Pipeline configuration ---

// configFile decodes every block a configuration file may contain. Unknown
// blocks are left in Remain so configuration can share files with other
// tools.
type configFile struct {
	Pipeline *pipelineBlock  `hcl:"pipeline,block"`
	Backends []*backendBlock `hcl:"backend,block"`
	Deassign *deassignBlock  `hcl:"deassign,block"`
	Dump     *dumpBlock      `hcl:"dump,block"`
	Store    *storeBlock     `hcl:"store,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type pipelineBlock struct {
	Enabled           *bool    `hcl:"enabled,optional"`
	Backend           *string  `hcl:"backend,optional"`
	DisabledOps       []string `hcl:"disabled_ops,optional"`
	ShapeHints        *string  `hcl:"shape_hints,optional"`
	AllowControlEdges *bool    `hcl:"allow_control_edges,optional"`
}

type backendBlock struct {
	Name      string   `hcl:"name,label"`
	Ops       []string `hcl:"ops"`
	Devices   []string `hcl:"devices,optional"`
	DataTypes []string `hcl:"data_types,optional"`
}

type deassignBlock struct {
	MinClusterSize   *int     `hcl:"min_cluster_size,optional"`
	MinNontrivialOps *int     `hcl:"min_nontrivial_ops,optional"`
	ComputeOps       []string `hcl:"compute_ops,optional"`
}

type dumpBlock struct {
	Dir         string   `hcl:"dir,optional"`
	Phases      []string `hcl:"phases,optional"`
	SocketIOURL string   `hcl:"socketio_url,optional"`
}

type storeBlock struct {
	Path     string `hcl:"path,optional"`
	InMemory bool   `hcl:"in_memory,optional"`
}
