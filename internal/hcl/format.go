package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/graphio"
	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/specialistvlad/clusterpass/internal/preserve"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension of HCL documents.
const Extension = ".hcl"

// Format reads and writes graph documents as HCL. It implements
// config.GraphFormat.
type Format struct{}

// NewFormat returns the HCL graph format.
func NewFormat() *Format {
	return &Format{}
}

func (f *Format) Name() string      { return "hcl" }
func (f *Format) Extension() string { return Extension }

// DecodeGraph parses an HCL graph document.
func (f *Format) DecodeGraph(ctx context.Context, data []byte, filename string) (*graph.Graph, preserve.Item, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, preserve.Item{}, passerr.GraphConstruction("hcl.DecodeGraph", "%s", diags.Error())
	}
	var root graphFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, preserve.Item{}, passerr.GraphConstruction("hcl.DecodeGraph", "%s", diags.Error())
	}

	specs := make([]graphio.NodeSpec, len(root.Nodes))
	for i, n := range root.Nodes {
		attrs, err := objectAttrs(n.Attrs)
		if err != nil {
			return nil, preserve.Item{}, passerr.GraphConstruction("hcl.DecodeGraph", "node %q: %v", n.Name, err)
		}
		specs[i] = graphio.NodeSpec{
			Name:    n.Name,
			Op:      n.Op,
			Device:  n.Device,
			Inputs:  n.Inputs,
			Outputs: n.Outputs,
			Attrs:   attrs,
		}
	}

	var graphAttrs graphio.Attrs
	if root.Graph != nil {
		var err error
		if graphAttrs, err = objectAttrs(root.Graph.Attrs); err != nil {
			return nil, preserve.Item{}, passerr.GraphConstruction("hcl.DecodeGraph", "graph attrs: %v", err)
		}
	}

	g, err := graphio.Build(specs, graphAttrs)
	if err != nil {
		return nil, preserve.Item{}, err
	}

	var item preserve.Item
	if root.Item != nil {
		item = preserve.Item{Feed: root.Item.Feed, Fetch: root.Item.Fetch, Keep: root.Item.Keep, Init: root.Item.Init}
	}
	logger.Debug("HCL graph decoded.", "file", filename, "nodes", g.NumNodes())
	return g, item, nil
}

// objectAttrs flattens an HCL object or map value into named attributes.
func objectAttrs(v *cty.Value) (graphio.Attrs, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("attrs must be an object, got %s", ty.FriendlyName())
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("attrs must be known values")
	}
	attrs := make(graphio.Attrs, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		attrs[k.AsString()] = val
	}
	return attrs, nil
}

func stringList(items []string) cty.Value {
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}

func attrObject(attrs map[string]cty.Value) cty.Value {
	return cty.ObjectVal(attrs)
}

func writeNodes(body *hclwrite.Body, specs []graphio.NodeSpec) {
	for _, s := range specs {
		body.AppendNewline()
		nb := body.AppendNewBlock("node", []string{s.Op, s.Name}).Body()
		if s.Device != "" {
			nb.SetAttributeValue("device", cty.StringVal(s.Device))
		}
		if len(s.Inputs) > 0 {
			nb.SetAttributeValue("inputs", stringList(s.Inputs))
		}
		if len(s.Outputs) > 0 {
			nb.SetAttributeValue("outputs", stringList(s.Outputs))
		}
		if len(s.Attrs) > 0 {
			nb.SetAttributeValue("attrs", attrObject(s.Attrs))
		}
	}
}

// EncodeGraph renders g and item as an HCL document.
func (f *Format) EncodeGraph(g *graph.Graph, item preserve.Item) ([]byte, error) {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	if len(g.Attrs) > 0 {
		body.AppendNewBlock("graph", nil).Body().SetAttributeValue("attrs", attrObject(g.Attrs))
	}
	writeNodes(body, graphio.Specs(g))

	lists := []struct {
		name  string
		items []string
	}{
		{"feed", item.Feed},
		{"fetch", item.Fetch},
		{"keep", item.Keep},
		{"init", item.Init},
	}
	var ib *hclwrite.Body
	for _, l := range lists {
		if len(l.items) == 0 {
			continue
		}
		if ib == nil {
			body.AppendNewline()
			ib = body.AppendNewBlock("item", nil).Body()
		}
		ib.SetAttributeValue(l.name, stringList(l.items))
	}
	return file.Bytes(), nil
}

// EncodeArtifact renders an artifact: an `artifact` block describing the
// signature followed by the body's nodes.
func (f *Format) EncodeArtifact(a *encapsulate.Artifact) ([]byte, error) {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	ab := body.AppendNewBlock("artifact", []string{a.Name}).Body()
	ab.SetAttributeValue("run_index", cty.NumberIntVal(a.Key.RunIndex))
	ab.SetAttributeValue("cluster_id", cty.NumberIntVal(int64(a.Key.ClusterID)))
	if a.Backend != "" {
		ab.SetAttributeValue("backend", cty.StringVal(a.Backend))
	}
	if a.Device != "" {
		ab.SetAttributeValue("device", cty.StringVal(a.Device))
	}
	if len(a.ShapeHints) > 0 {
		ab.SetAttributeValue("shape_hints", cty.StringVal(a.ShapeHints.String()))
	}
	writeSlots(ab, "input", a.Inputs)
	writeSlots(ab, "output", a.Outputs)

	writeNodes(body, graphio.Specs(a.Graph))
	return file.Bytes(), nil
}

func writeSlots(body *hclwrite.Body, kind string, slots []encapsulate.Slot) {
	sorted := append([]encapsulate.Slot(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	for _, s := range sorted {
		sb := body.AppendNewBlock(kind, nil).Body()
		sb.SetAttributeValue("index", cty.NumberIntVal(int64(s.Index)))
		sb.SetAttributeValue("node", cty.StringVal(s.Node))
		sb.SetAttributeValue("output", cty.NumberIntVal(int64(s.Output)))
		sb.SetAttributeValue("type", cty.StringVal(string(s.Type)))
	}
}
