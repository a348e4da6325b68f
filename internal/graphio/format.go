package graphio

import (
	"context"

	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/preserve"
)

// Format reads and writes JSON documents. It implements config.GraphFormat.
type Format struct{}

// NewFormat returns the JSON graph format.
func NewFormat() *Format {
	return &Format{}
}

func (f *Format) Name() string      { return "json" }
func (f *Format) Extension() string { return ".json" }

func (f *Format) DecodeGraph(ctx context.Context, data []byte, filename string) (*graph.Graph, preserve.Item, error) {
	return DecodeDocument(data)
}

func (f *Format) EncodeGraph(g *graph.Graph, item preserve.Item) ([]byte, error) {
	return EncodeDocument(g, item)
}

func (f *Format) EncodeArtifact(a *encapsulate.Artifact) ([]byte, error) {
	return EncodeArtifact(a)
}
