// Package graphio converts graphs and artifacts to and from their JSON
// interchange form. Node attributes keep their cty type alongside the value
// so a document round-trips without loss.
package graphio

import (
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/nodeid"
	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/specialistvlad/clusterpass/internal/preserve"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// NodeSpec is the serialized form of one node. Inputs use endpoint syntax:
// data inputs in slot order, then control inputs as `^name`.
type NodeSpec struct {
	Name    string   `json:"name"`
	Op      string   `json:"op"`
	Device  string   `json:"device,omitempty"`
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
	Attrs   Attrs    `json:"attrs,omitempty"`
}

// Document is a graph plus the item describing its external surface.
type Document struct {
	Attrs Attrs      `json:"attrs,omitempty"`
	Nodes []NodeSpec `json:"nodes"`
	Item  ItemSpec   `json:"item"`
}

// ItemSpec is the serialized preserve.Item.
type ItemSpec struct {
	Feed  []string `json:"feed,omitempty"`
	Fetch []string `json:"fetch,omitempty"`
	Keep  []string `json:"keep,omitempty"`
	Init  []string `json:"init,omitempty"`
}

// ToItem converts the document form to a preserve.Item.
func (s ItemSpec) ToItem() preserve.Item {
	return preserve.Item{Feed: s.Feed, Fetch: s.Fetch, Keep: s.Keep, Init: s.Init}
}

// FromItem converts a preserve.Item to its serialized form.
func FromItem(item preserve.Item) ItemSpec {
	return ItemSpec{Feed: item.Feed, Fetch: item.Fetch, Keep: item.Keep, Init: item.Init}
}

// Attrs is a set of cty values that marshals each value with its type.
type Attrs map[string]cty.Value

type typedValue struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes every attribute as {"type": ..., "value": ...}.
func (a Attrs) MarshalJSON() ([]byte, error) {
	out := make(map[string]typedValue, len(a))
	for name, v := range a {
		ty, err := ctyjson.MarshalType(v.Type())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		val, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = typedValue{Type: ty, Value: val}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Attrs) UnmarshalJSON(data []byte) error {
	var in map[string]typedValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Attrs, len(in))
	for name, tv := range in {
		ty, err := ctyjson.UnmarshalType(tv.Type)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		v, err := ctyjson.Unmarshal(tv.Value, ty)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = v
	}
	*a = out
	return nil
}

// Build constructs a graph from node specs. Nodes receive ids in the order
// given; inputs may refer to nodes declared later.
func Build(specs []NodeSpec, attrs Attrs) (*graph.Graph, error) {
	g := graph.New()
	for k, v := range attrs {
		g.Attrs[k] = v
	}
	for _, s := range specs {
		outputs := make([]graph.DataType, len(s.Outputs))
		for i, o := range s.Outputs {
			outputs[i] = graph.DataType(o)
		}
		if _, err := g.AddNode(graph.NodeDef{
			Name:        s.Name,
			Op:          s.Op,
			Device:      s.Device,
			Attrs:       s.Attrs,
			OutputTypes: outputs,
		}); err != nil {
			return nil, err
		}
	}

	for _, s := range specs {
		dst, _ := g.NodeByName(s.Name)
		slot := 0
		for _, raw := range s.Inputs {
			ref, err := nodeid.Parse(raw)
			if err != nil {
				return nil, err
			}
			src, ok := g.NodeByName(ref.Node)
			if !ok {
				return nil, passerr.GraphConstruction("graphio.Build", "node %q: input %q refers to an unknown node", s.Name, raw)
			}
			if ref.Control {
				_, err = g.AddControlEdge(src.ID(), dst.ID())
			} else {
				_, err = g.AddEdge(src.ID(), ref.Output, dst.ID(), slot)
				slot++
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Specs returns the serialized form of every node in id order.
func Specs(g *graph.Graph) []NodeSpec {
	nodes := g.Nodes()
	specs := make([]NodeSpec, 0, len(nodes))
	for _, n := range nodes {
		s := NodeSpec{Name: n.Name(), Op: n.Op, Device: n.Device}
		for _, e := range n.InEdges() {
			src := g.Node(e.Src).Name()
			if e.IsControl() {
				s.Inputs = append(s.Inputs, nodeid.NewControlRef(src).String())
			} else {
				s.Inputs = append(s.Inputs, nodeid.NewRef(src, e.SrcOutput).String())
			}
		}
		for _, t := range n.OutputTypes {
			s.Outputs = append(s.Outputs, string(t))
		}
		if len(n.Attrs) > 0 {
			s.Attrs = make(Attrs, len(n.Attrs))
			for k, v := range n.Attrs {
				s.Attrs[k] = v
			}
		}
		specs = append(specs, s)
	}
	return specs
}

// graphAttrs copies graph-level attributes, or returns nil when there are none.
func graphAttrs(g *graph.Graph) Attrs {
	if len(g.Attrs) == 0 {
		return nil
	}
	out := make(Attrs, len(g.Attrs))
	for k, v := range g.Attrs {
		out[k] = v
	}
	return out
}

// DecodeDocument parses a JSON document into a graph and its item.
func DecodeDocument(data []byte) (*graph.Graph, preserve.Item, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, preserve.Item{}, passerr.GraphConstruction("graphio.DecodeDocument", "%v", err)
	}
	g, err := Build(doc.Nodes, doc.Attrs)
	if err != nil {
		return nil, preserve.Item{}, err
	}
	return g, doc.Item.ToItem(), nil
}

// EncodeDocument writes g and item as indented JSON.
func EncodeDocument(g *graph.Graph, item preserve.Item) ([]byte, error) {
	doc := Document{Attrs: graphAttrs(g), Nodes: Specs(g), Item: FromItem(item)}
	return json.MarshalIndent(doc, "", "  ")
}
