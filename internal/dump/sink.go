// Package dump writes diagnostic snapshots of the graph between pipeline
// phases. Sinks are best effort: the orchestrator logs their errors and
// carries on.
package dump

import (
	"context"
	"errors"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/mark"
)

// Snapshot is the state of one run after one phase. Marks and Clusters are
// nil before the phases that produce them.
type Snapshot struct {
	InvocationID string
	RunIndex     int64
	Phase        string
	Graph        *graph.Graph
	Marks        mark.Marks
	Clusters     *cluster.Table
}

// Sink receives snapshots.
type Sink interface {
	Dump(ctx context.Context, s Snapshot) error
	Close() error
}

// Multi fans a snapshot out to several sinks.
type Multi []Sink

// Dump sends s to every sink and joins their errors.
func (m Multi) Dump(ctx context.Context, s Snapshot) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Dump(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PhaseFilter forwards only the listed phases. An empty list forwards all.
type PhaseFilter struct {
	Phases map[string]bool
	Sink   Sink
}

// NewPhaseFilter wraps sink so that only phases are dumped.
func NewPhaseFilter(sink Sink, phases []string) *PhaseFilter {
	set := make(map[string]bool, len(phases))
	for _, p := range phases {
		set[p] = true
	}
	return &PhaseFilter{Phases: set, Sink: sink}
}

func (f *PhaseFilter) Dump(ctx context.Context, s Snapshot) error {
	if len(f.Phases) > 0 && !f.Phases[s.Phase] {
		return nil
	}
	return f.Sink.Dump(ctx, s)
}

func (f *PhaseFilter) Close() error {
	return f.Sink.Close()
}
