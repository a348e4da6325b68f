package config

import (
	"context"

	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/preserve"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic model. With no paths it returns Default().
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// GraphFormat reads and writes graph documents and artifacts in one
// interchange format.
type GraphFormat interface {
	// Name is the format name used on the command line, e.g. "hcl".
	Name() string

	// Extension is the file extension including the dot, e.g. ".hcl".
	Extension() string

	// DecodeGraph parses a graph document. filename is used in diagnostics.
	DecodeGraph(ctx context.Context, data []byte, filename string) (*graph.Graph, preserve.Item, error)

	// EncodeGraph renders a graph document.
	EncodeGraph(g *graph.Graph, item preserve.Item) ([]byte, error)

	// EncodeArtifact renders one encapsulated cluster.
	EncodeArtifact(a *encapsulate.Artifact) ([]byte, error)
}
