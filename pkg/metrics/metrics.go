// Package metrics exposes batch run metrics in Prometheus format, either as a
// textfile for the node exporter's collector or over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "setlistgraph"

// Metrics holds the collectors for one pipeline run. Each instance owns its
// registry, so several runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// RecordsLoaded counts input records before validation.
	RecordsLoaded prometheus.Counter

	// Findings counts non-fatal findings, labeled by kind.
	Findings *prometheus.CounterVec

	// DistinctNames is the number of names entering candidate generation.
	DistinctNames prometheus.Gauge

	// PairsScored counts every scored candidate pair.
	PairsScored prometheus.Counter

	// PairsKept counts pairs retained above the lowest configured bound.
	PairsKept prometheus.Counter

	// VariantsMerged counts names mapped to a canonical name other than
	// themselves.
	VariantsMerged prometheus.Counter

	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge

	Communities prometheus.Gauge
	Modularity  prometheus.Gauge

	// PhaseDuration observes per-phase wall time in seconds.
	PhaseDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total number of input records read",
		}),
		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Non-fatal findings recorded during the run, by kind",
		}, []string{"kind"}),
		DistinctNames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distinct_names",
			Help:      "Distinct performer names entering candidate generation",
		}),
		PairsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_scored_total",
			Help:      "Total number of candidate name pairs scored",
		}),
		PairsKept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_kept_total",
			Help:      "Scored pairs retained for merging or diagnostics",
		}),
		VariantsMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_merged_total",
			Help:      "Name variants resolved to a different canonical name",
		}),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the collaboration graph",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the collaboration graph",
		}),
		Communities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "communities",
			Help:      "Communities in the final partition",
		}),
		Modularity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modularity",
			Help:      "Modularity of the final partition",
		}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each pipeline phase",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
	}
}

// ObservePhase records one phase duration. Safe on a nil receiver.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every collected metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
