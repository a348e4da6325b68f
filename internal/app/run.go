package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/clusterpass/internal/artifactstore"
	"github.com/specialistvlad/clusterpass/internal/badgerstore"
	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/dump"
	"github.com/specialistvlad/clusterpass/internal/fsutil"
	"github.com/specialistvlad/clusterpass/internal/inmemorystore"
	"github.com/specialistvlad/clusterpass/internal/mark"
	"github.com/specialistvlad/clusterpass/internal/pipeline"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"golang.org/x/sync/errgroup"
)

// FileResult summarizes the processing of one input graph.
type FileResult struct {
	Input     string
	Output    string
	Artifacts []string
	RunIndex  int64
	Skipped   string
}

// Run processes every input graph and writes the results to the output
// directory. Graphs are processed concurrently by up to Workers goroutines
// sharing one orchestrator. The first failure cancels the batch.
func (a *App) Run(ctx context.Context) (results []FileResult, err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(ctx); err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, a.closeHealthcheckServer(ctx))
	}()

	shutdownTracing, err := a.setupTracing(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, shutdownTracing(context.WithoutCancel(ctx)))
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	sink, err := a.openSink(ctx)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		defer func() {
			err = errors.Join(err, sink.Close())
		}()
	}

	orch, err := a.newOrchestrator(store, sink)
	if err != nil {
		return nil, err
	}

	files, err := a.findInputs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No graph files found, nothing to do.", "inputs", a.cfg.Inputs)
		return nil, nil
	}
	if err := a.checkOutputCollisions(files); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", a.cfg.OutDir, err)
	}

	logger.Info("Processing graphs.", "files", len(files), "workers", a.cfg.Workers)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for _, file := range files {
		g.Go(func() error {
			res, err := a.processFile(gctx, orch, file)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Input < results[j].Input })
	logger.Info("All graphs processed.", "files", len(results), "registered_clusters", orch.Clusters().Len())
	return results, nil
}

// openStore picks the artifact store: BadgerDB when a path or in-memory
// database is configured, a plain map otherwise.
func (a *App) openStore(ctx context.Context) (artifactstore.Store, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := a.model.Store
	switch {
	case cfg.InMemory:
		logger.Debug("Opening in-memory artifact database.")
		return badgerstore.Open(badgerstore.Config{InMemory: true, Logger: a.logger})
	case cfg.Path != "":
		logger.Debug("Opening artifact database.", "path", cfg.Path)
		bcfg := badgerstore.DefaultConfig(cfg.Path)
		bcfg.Logger = a.logger
		return badgerstore.Open(bcfg)
	default:
		return inmemorystore.New(), nil
	}
}

// openSink builds the diagnostic dump sinks. It returns nil when dumping is
// not configured.
func (a *App) openSink(ctx context.Context) (dump.Sink, error) {
	cfg := a.model.Dump
	var sinks dump.Multi
	if cfg.Dir != "" {
		fs, err := dump.NewFileSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.SocketIOURL != "" {
		s, err := dump.DialSocketIO(ctx, cfg.SocketIOURL)
		if err != nil {
			return nil, errors.Join(err, sinks.Close())
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return dump.NewPhaseFilter(sinks, cfg.Phases), nil
}

func (a *App) newOrchestrator(store artifactstore.Store, sink dump.Sink) (*pipeline.Orchestrator, error) {
	caps, ok := a.backends.Backend(a.model.Pipeline.Backend)
	if !ok {
		return nil, fmt.Errorf("backend '%s' is not registered", a.model.Pipeline.Backend)
	}

	policy := cluster.DefaultPolicy()
	policy.MinSize = a.model.Deassign.MinClusterSize
	policy.MinNonTrivial = a.model.Deassign.MinNontrivialOps
	if len(a.model.Deassign.ComputeOps) > 0 {
		policy.ComputeOps = make(map[string]bool, len(a.model.Deassign.ComputeOps))
		for _, op := range a.model.Deassign.ComputeOps {
			policy.ComputeOps[op] = true
		}
	}

	return pipeline.New(pipeline.Config{
		Marker:            mark.NewMarker(caps),
		Policy:            policy,
		ShapeHints:        a.hints,
		DisabledOps:       a.model.Pipeline.DisabledOpSet(),
		AllowControlEdges: a.model.Pipeline.AllowControlEdges,
		Toggle:            pipeline.NewToggle(a.model.Pipeline.Enabled),
		Clusters:          registry.NewClusters(store),
		Sink:              sink,
	})
}

// inputFile is a graph file and its output location relative to OutDir,
// without extension.
type inputFile struct {
	path string
	rel  string
}

// findInputs expands the configured inputs into a duplicate-free list of
// graph files with a registered extension. Files found under a directory
// input keep their subdirectory below OutDir.
func (a *App) findInputs() ([]inputFile, error) {
	var files []inputFile
	seen := make(map[string]bool)
	for _, path := range a.cfg.Inputs {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing input %s: %w", path, err)
		}
		root := filepath.Dir(path)
		found := []string{path}
		if info.IsDir() {
			root = path
			if found, err = fsutil.FindFilesByExtension(path, a.extensions()...); err != nil {
				return nil, err
			}
		} else if _, ok := a.formats[filepath.Ext(path)]; !ok {
			return nil, fmt.Errorf("input %s: unsupported extension (known: %s)", path, strings.Join(a.extensions(), ", "))
		}
		for _, f := range found {
			if seen[f] {
				continue
			}
			seen[f] = true
			rel, err := filepath.Rel(root, f)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", f, err)
			}
			files = append(files, inputFile{path: f, rel: strings.TrimSuffix(rel, filepath.Ext(rel))})
		}
	}
	return files, nil
}

// outputFormat is the format a graph read from path is written in.
func (a *App) outputFormat(path string) config.GraphFormat {
	if a.cfg.Format != "" {
		return formatByName(a.formats, a.cfg.Format)
	}
	return a.formats[filepath.Ext(path)]
}

func (a *App) outputPath(f inputFile) string {
	return filepath.Join(a.cfg.OutDir, f.rel+a.outputFormat(f.path).Extension())
}

// checkOutputCollisions rejects a batch in which two inputs would be
// written to the same output file.
func (a *App) checkOutputCollisions(files []inputFile) error {
	owners := make(map[string]string, len(files))
	for _, f := range files {
		out := a.outputPath(f)
		if prev, ok := owners[out]; ok {
			return fmt.Errorf("inputs %s and %s would both be written to %s", prev, f.path, out)
		}
		owners[out] = f.path
	}
	return nil
}

// processFile runs the pipeline over one graph file and writes the
// rewritten graph and its artifacts.
func (a *App) processFile(ctx context.Context, orch *pipeline.Orchestrator, file inputFile) (FileResult, error) {
	path := file.path
	ctx = ctxlog.With(ctx, "file", path)
	logger := ctxlog.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	in := a.formats[filepath.Ext(path)]
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	g, item, err := in.DecodeGraph(ctx, data, path)
	if err != nil {
		return FileResult{}, fmt.Errorf("decode %s: %w", path, err)
	}

	res, err := orch.Run(ctx, g, item)
	if err != nil {
		return FileResult{}, fmt.Errorf("process %s: %w", path, err)
	}

	out := a.outputFormat(path)
	result := FileResult{
		Input:    path,
		Output:   a.outputPath(file),
		RunIndex: res.RunIndex,
		Skipped:  res.Skipped,
	}

	encoded, err := out.EncodeGraph(res.Graph, item)
	if err != nil {
		return FileResult{}, fmt.Errorf("encode %s: %w", result.Output, err)
	}
	if err := os.MkdirAll(filepath.Dir(result.Output), 0o755); err != nil {
		return FileResult{}, fmt.Errorf("create output directory for %s: %w", result.Output, err)
	}
	if err := os.WriteFile(result.Output, encoded, 0o644); err != nil {
		return FileResult{}, fmt.Errorf("write %s: %w", result.Output, err)
	}

	for _, art := range res.Artifacts {
		artPath := filepath.Join(a.cfg.OutDir, art.Name+out.Extension())
		encoded, err := out.EncodeArtifact(art)
		if err != nil {
			return FileResult{}, fmt.Errorf("encode artifact %s: %w", art.Name, err)
		}
		if err := os.WriteFile(artPath, encoded, 0o644); err != nil {
			return FileResult{}, fmt.Errorf("write %s: %w", artPath, err)
		}
		result.Artifacts = append(result.Artifacts, artPath)
	}

	logger.Info("Graph processed.",
		"output", result.Output,
		"run", res.RunIndex,
		"clusters", len(res.Artifacts),
		"skipped", res.Skipped,
	)
	return result, nil
}
