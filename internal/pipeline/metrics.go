package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts pipeline runs by outcome: completed, skipped, failed.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterpass_runs_total",
		Help: "Total pipeline runs by outcome",
	}, []string{"outcome"})

	// phaseDuration tracks per-phase latency.
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clusterpass_phase_duration_seconds",
		Help:    "Pipeline phase duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"phase"})

	// clustersTotal counts clusters by fate: encapsulated or deassigned.
	clustersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterpass_clusters_total",
		Help: "Total clusters by result",
	}, []string{"result"})

	// eligibleNodes tracks how many nodes marking accepted per run.
	eligibleNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clusterpass_eligible_nodes",
		Help:    "Eligible nodes per pipeline run",
		Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
	})

	// dumpErrors counts snapshot sink failures.
	dumpErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clusterpass_dump_errors_total",
		Help: "Total diagnostic dump failures",
	})
)
