// Package pipeline sequences the clustering phases over one graph.
//
// A run clones the caller's graph and works on the clone, so a failing
// phase never leaves a half-rewritten graph behind. The phases run strictly
// in order:
//
//	init -> preserved -> marked -> clustered -> deassigned -> encapsulated -> tracked -> done
//
// A run skips straight from init to done when the pass is disabled, when
// the graph was already processed, or when marking accepts no node. Skipped
// runs clear the artifact registry and hand back an unchanged copy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/dump"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/freshness"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/mark"
	"github.com/specialistvlad/clusterpass/internal/preserve"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DisableEnv forces every run to skip when set to anything but "", "0" or
// "false".
const DisableEnv = "CLUSTERPASS_DISABLE"

// ProcessedAttr is the graph attribute set by a completed run.
const ProcessedAttr = "_clusterpass_processed"

// Skip reasons reported in Result.Skipped.
const (
	SkipDisabled     = "disabled"
	SkipEnv          = "disabled by " + DisableEnv
	SkipProcessed    = "already processed"
	SkipNoneEligible = "no eligible nodes"
)

// Config holds an orchestrator's collaborators. Marker is required; every
// other field has a usable zero value.
type Config struct {
	Marker            *mark.Marker
	Policy            cluster.Policy
	ShapeHints        shapehint.Set
	DisabledOps       map[string]bool
	AllowControlEdges bool

	Counter  *RunCounter
	Toggle   *Toggle
	Clusters *registry.Clusters
	Sink     dump.Sink
	// Getenv reads the override variable. Defaults to os.Getenv.
	Getenv func(string) string
}

// Orchestrator runs the pipeline. It is safe for concurrent use; runs share
// only the counter, the toggle and the registry.
type Orchestrator struct {
	cfg    Config
	tracer trace.Tracer
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Marker == nil {
		return nil, errors.New("pipeline: marker is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = cluster.DefaultPolicy()
	}
	if cfg.Counter == nil {
		cfg.Counter = NewRunCounter()
	}
	if cfg.Toggle == nil {
		cfg.Toggle = NewToggle(true)
	}
	if cfg.Clusters == nil {
		cfg.Clusters = registry.NewClusters(nil)
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	return &Orchestrator{cfg: cfg, tracer: otel.Tracer("clusterpass/pipeline")}, nil
}

// Clusters returns the registry artifacts are registered in.
func (o *Orchestrator) Clusters() *registry.Clusters {
	return o.cfg.Clusters
}

// Result is the outcome of one run.
type Result struct {
	// Graph is the rewritten graph, or an unchanged copy when skipped.
	Graph        *graph.Graph
	Artifacts    []*encapsulate.Artifact
	RunIndex     int64
	InvocationID string
	State        State
	// Skipped holds the reason for an early exit, or "".
	Skipped string
	Tracked freshness.Result
}

// run carries the state of one invocation between phases.
type run struct {
	o          *Orchestrator
	ctx        context.Context
	index      int64
	invocation string
	state      State

	graph     *graph.Graph
	preserved preserve.Set
	marks     mark.Marks
	table     *cluster.Table
}

// Run processes g. g itself is never modified. On error the returned
// result is nil.
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph, item preserve.Item) (*Result, error) {
	r := &run{
		o:          o,
		index:      o.cfg.Counter.Next(),
		invocation: uuid.NewString(),
		state:      StateInit,
	}
	ctx = ctxlog.With(ctx, "run", r.index, "invocation", r.invocation)
	ctx, span := o.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.Int64("run_index", r.index),
		attribute.String("invocation", r.invocation),
		attribute.Int("nodes", g.NumNodes()),
	))
	defer span.End()
	r.ctx = ctx
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline run started.", "nodes", g.NumNodes())

	if reason := o.skipReason(g); reason != "" {
		return r.skip(g, reason)
	}

	res, err := r.execute(g, item)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		logger.Error("Pipeline run failed.", "state", r.state.String(), "error", err)
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) skipReason(g *graph.Graph) string {
	if !o.cfg.Toggle.Enabled() {
		return SkipDisabled
	}
	switch strings.ToLower(strings.TrimSpace(o.cfg.Getenv(DisableEnv))) {
	case "", "0", "false":
	default:
		return SkipEnv
	}
	if IsProcessed(g) {
		return SkipProcessed
	}
	return ""
}

// IsProcessed reports whether g carries the marker of a completed run or
// already contains call nodes.
func IsProcessed(g *graph.Graph) bool {
	if v, ok := g.Attrs[ProcessedAttr]; ok && v.Type() == cty.Bool && !v.IsNull() && v.True() {
		return true
	}
	for _, n := range g.Nodes() {
		if n.Op == encapsulate.CallOp {
			return true
		}
	}
	return false
}

// skip takes the early-exit edge: stale registrations are evicted and the
// caller gets an untouched copy of its graph.
func (r *run) skip(original *graph.Graph, reason string) (*Result, error) {
	logger := ctxlog.FromContext(r.ctx)
	evicted, err := r.o.cfg.Clusters.EvictAll(r.ctx)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("evict stale clusters: %w", err)
	}
	logger.Info("Pipeline skipped.", "reason", reason, "evicted", evicted)
	runsTotal.WithLabelValues("skipped").Inc()
	r.state = StateDone
	return &Result{
		Graph:        original.Clone(),
		RunIndex:     r.index,
		InvocationID: r.invocation,
		State:        StateDone,
		Skipped:      reason,
	}, nil
}

func (r *run) execute(original *graph.Graph, item preserve.Item) (*Result, error) {
	cfg := r.o.cfg
	logger := ctxlog.FromContext(r.ctx)

	r.graph = original.Clone()
	if err := r.graph.Validate(); err != nil {
		return nil, err
	}

	err := r.phase(StatePreserved, func(ctx context.Context) error {
		var err error
		r.preserved, err = preserve.Compute(ctx, r.graph, item, cfg.DisabledOps)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = r.phase(StateMarked, func(ctx context.Context) error {
		r.marks = cfg.Marker.Mark(ctx, r.graph, r.preserved)
		return nil
	})
	if err != nil {
		return nil, err
	}
	eligible := len(r.marks.EligibleIDs())
	eligibleNodes.Observe(float64(eligible))
	if eligible == 0 {
		return r.skip(original, SkipNoneEligible)
	}

	err = r.phase(StateClustered, func(ctx context.Context) error {
		var err error
		r.table, err = cluster.Assign(ctx, r.graph, r.marks, cluster.AssignOptions{AllowControlEdges: cfg.AllowControlEdges})
		return err
	})
	if err != nil {
		return nil, err
	}

	err = r.phase(StateDeassigned, func(ctx context.Context) error {
		removed := cluster.Deassign(ctx, r.graph, r.table, cfg.Policy)
		clustersTotal.WithLabelValues("deassigned").Add(float64(len(removed)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var artifacts []*encapsulate.Artifact
	err = r.phase(StateEncapsulated, func(ctx context.Context) error {
		var err error
		artifacts, err = encapsulate.Encapsulate(ctx, r.graph, r.table, encapsulate.Options{
			RunIndex:   r.index,
			Backend:    cfg.Marker.Capabilities().Backend,
			ShapeHints: cfg.ShapeHints,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	// Members are gone from the graph; the table no longer describes it.
	r.table = nil

	var tracked freshness.Result
	err = r.phase(StateTracked, func(ctx context.Context) error {
		tracked = freshness.Rewrite(ctx, r.graph, r.preserved, cfg.Marker)
		return r.graph.Validate()
	})
	if err != nil {
		return nil, err
	}

	err = r.phase(StateDone, func(ctx context.Context) error {
		for i, a := range artifacts {
			if err := cfg.Clusters.Register(ctx, a); err != nil {
				r.unregister(artifacts[:i])
				return err
			}
		}
		r.graph.Attrs[ProcessedAttr] = cty.True
		return nil
	})
	if err != nil {
		return nil, err
	}

	clustersTotal.WithLabelValues("encapsulated").Add(float64(len(artifacts)))
	runsTotal.WithLabelValues("completed").Inc()
	logger.Info("Pipeline run complete.",
		"eligible", eligible,
		"clusters", len(artifacts),
		"tracked_variables", len(tracked.Variables),
		"nodes", r.graph.NumNodes(),
	)
	return &Result{
		Graph:        r.graph,
		Artifacts:    artifacts,
		RunIndex:     r.index,
		InvocationID: r.invocation,
		State:        r.state,
		Tracked:      tracked,
	}, nil
}

// phase runs fn inside a span, advances the state on success and hands a
// snapshot to the dump sink.
func (r *run) phase(state State, fn func(ctx context.Context) error) error {
	ctx, span := r.o.tracer.Start(r.ctx, "pipeline."+state.String())
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	phaseDuration.WithLabelValues(state.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, state.String()+" failed")
		return err
	}

	r.state = state
	ctxlog.FromContext(ctx).Debug("Phase complete.", "phase", state.String(), "duration", time.Since(start))
	r.dump(ctx)
	return nil
}

func (r *run) dump(ctx context.Context) {
	if r.o.cfg.Sink == nil {
		return
	}
	err := r.o.cfg.Sink.Dump(ctx, dump.Snapshot{
		InvocationID: r.invocation,
		RunIndex:     r.index,
		Phase:        r.state.String(),
		Graph:        r.graph,
		Marks:        r.marks,
		Clusters:     r.table,
	})
	if err != nil {
		dumpErrors.Inc()
		ctxlog.FromContext(ctx).Warn("Snapshot dump failed.", "phase", r.state.String(), "error", err)
	}
}

// unregister rolls back registrations of a failed run.
func (r *run) unregister(artifacts []*encapsulate.Artifact) {
	for _, a := range artifacts {
		if _, err := r.o.cfg.Clusters.Evict(r.ctx, a.Key); err != nil {
			ctxlog.FromContext(r.ctx).Warn("Failed to roll back artifact registration.", "key", a.Key.String(), "error", err)
		}
	}
}
