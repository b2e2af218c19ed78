// Package metrics collects run counters for source loading and BOM
// resolution. A batch CLI run has no scrape endpoint, so the registry is
// exported once at exit in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metrics of one run.
type Registry struct {
	registry *prometheus.Registry

	// Ingestion
	SourcesLoaded  *prometheus.CounterVec // status: ok | error
	RecordsLoaded  *prometheus.CounterVec // source
	LoadDuration   *prometheus.HistogramVec
	RecordsSkipped *prometheus.CounterVec // source, reason

	// Resolution
	PartsRequested  *prometheus.CounterVec // status: FOUND | COMPONENT_ONLY | NOT_FOUND
	NodesResolved   *prometheus.CounterVec // terminal: expanded | LEAF | CYCLIC
	ReferenceRows   prometheus.Counter
	ReportRows      prometheus.Counter
	ResolveDuration prometheus.Histogram
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.SourcesLoaded = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomtree_sources_loaded_total",
			Help: "BOM sources loaded, by outcome",
		},
		[]string{"status"},
	)
	r.RecordsLoaded = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomtree_records_loaded_total",
			Help: "Parent/component records loaded per source",
		},
		[]string{"source"},
	)
	r.RecordsSkipped = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomtree_records_skipped_total",
			Help: "Source rows skipped during ingestion",
		},
		[]string{"source", "reason"},
	)
	r.LoadDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bomtree_source_load_duration_seconds",
			Help:    "Time taken to load and normalize one source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"source"},
	)
	r.PartsRequested = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomtree_parts_requested_total",
			Help: "Requested root parts, by resolution status",
		},
		[]string{"status"},
	)
	r.NodesResolved = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomtree_nodes_resolved_total",
			Help: "Tree nodes created by the resolver, by terminal state",
		},
		[]string{"terminal"},
	)
	r.ReferenceRows = f.NewCounter(prometheus.CounterOpts{
		Name: "bomtree_reference_rows_total",
		Help: "Report rows emitted as references to a canonical row",
	})
	r.ReportRows = f.NewCounter(prometheus.CounterOpts{
		Name: "bomtree_report_rows_total",
		Help: "Report rows emitted",
	})
	r.ResolveDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "bomtree_batch_duration_seconds",
		Help:    "Wall time of one multi-part resolution batch",
		Buckets: prometheus.DefBuckets,
	})

	return r
}

// RecordSourceLoad records the outcome of loading one source.
func (r *Registry) RecordSourceLoad(source string, records int, err error, duration time.Duration) {
	if r == nil {
		return
	}
	if err != nil {
		r.SourcesLoaded.WithLabelValues("error").Inc()
		return
	}
	r.SourcesLoaded.WithLabelValues("ok").Inc()
	r.RecordsLoaded.WithLabelValues(source).Add(float64(records))
	r.LoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSkipped counts rows dropped while reading a source.
func (r *Registry) RecordSkipped(source, reason string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.RecordsSkipped.WithLabelValues(source, reason).Add(float64(n))
}

// RecordNode counts one resolved tree node. terminal is "" for expanded nodes.
func (r *Registry) RecordNode(terminal string) {
	if r == nil {
		return
	}
	if terminal == "" {
		terminal = "expanded"
	}
	r.NodesResolved.WithLabelValues(terminal).Inc()
}

// RecordPart counts one requested part by status.
func (r *Registry) RecordPart(status string) {
	if r == nil {
		return
	}
	r.PartsRequested.WithLabelValues(status).Inc()
}

// RecordBatch records the size and duration of a finished batch.
func (r *Registry) RecordBatch(rows, references int, duration time.Duration) {
	if r == nil {
		return
	}
	r.ReportRows.Add(float64(rows))
	r.ReferenceRows.Add(float64(references))
	r.ResolveDuration.Observe(duration.Seconds())
}

// Gatherer exposes the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
