package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load starts from config.Default and applies every .hcl file found under
// paths in order. Scalar settings from later files win; backends accumulate.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.Default()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root configFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		l.merge(model, &root)
	}

	logger.Debug("HCL loading complete.", "backends", len(model.Backends), "disabled_ops", len(model.Pipeline.DisabledOps))
	return model, nil
}

func (l *Loader) merge(model *config.Model, root *configFile) {
	if p := root.Pipeline; p != nil {
		if p.Enabled != nil {
			model.Pipeline.Enabled = *p.Enabled
		}
		if p.Backend != nil {
			model.Pipeline.Backend = *p.Backend
		}
		if p.DisabledOps != nil {
			model.Pipeline.DisabledOps = p.DisabledOps
		}
		if p.ShapeHints != nil {
			model.Pipeline.ShapeHints = *p.ShapeHints
		}
		if p.AllowControlEdges != nil {
			model.Pipeline.AllowControlEdges = *p.AllowControlEdges
		}
	}
	for _, b := range root.Backends {
		model.Backends = append(model.Backends, &config.Backend{
			Name:      b.Name,
			Ops:       b.Ops,
			Devices:   b.Devices,
			DataTypes: b.DataTypes,
		})
	}
	if d := root.Deassign; d != nil {
		if d.MinClusterSize != nil {
			model.Deassign.MinClusterSize = *d.MinClusterSize
		}
		if d.MinNontrivialOps != nil {
			model.Deassign.MinNontrivialOps = *d.MinNontrivialOps
		}
		if d.ComputeOps != nil {
			model.Deassign.ComputeOps = d.ComputeOps
		}
	}
	if d := root.Dump; d != nil {
		model.Dump = config.Dump{Dir: d.Dir, Phases: d.Phases, SocketIOURL: d.SocketIOURL}
	}
	if s := root.Store; s != nil {
		model.Store = config.Store{Path: s.Path, InMemory: s.InMemory}
	}
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, without duplicates.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, Extension)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}
