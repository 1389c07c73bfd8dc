// Package metrics instruments the staging and batch-execution pipeline
// with Prometheus metrics, grounded on the retrieval pack's
// DBAShand/cdc-sink fragment (internal/staging/stage/metrics.go), which
// shapes a similar staging pipeline's store/retire/select durations and
// error counts with promauto histograms and counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is safe to use with a nil receiver: every method no-ops when
// c is nil, so the Orchestrator can carry an optional *Collector without
// branching at each call site.
type Collector struct {
	batchesTotal         *prometheus.CounterVec
	batchDuration        *prometheus.HistogramVec
	stagingWriteDuration prometheus.Histogram
	verticesCreated      prometheus.Counter
	edgesCreated         prometheus.Counter
}

// NewCollector registers the loader's metrics against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid duplicate-registration
// panics across test cases.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		batchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "age_batches_total",
			Help: "Batches processed by the AGE batch loader, by phase/type/outcome.",
		}, []string{"phase", "type", "outcome"}),
		batchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "age_batch_duration_seconds",
			Help:    "Time spent executing one staging+Cypher batch round trip.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		stagingWriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "age_staging_write_duration_seconds",
			Help:    "Time spent writing a batch into age_params.",
			Buckets: prometheus.DefBuckets,
		}),
		verticesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "age_vertices_created_total",
			Help: "Vertices created across all loadGraphData calls.",
		}),
		edgesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "age_edges_created_total",
			Help: "Edges created across all loadGraphData calls.",
		}),
	}
}

func (c *Collector) ObserveBatch(phase, typ, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.batchesTotal.WithLabelValues(phase, typ, outcome).Inc()
	c.batchDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (c *Collector) ObserveStagingWrite(d time.Duration) {
	if c == nil {
		return
	}
	c.stagingWriteDuration.Observe(d.Seconds())
}

func (c *Collector) AddVerticesCreated(n uint64) {
	if c == nil {
		return
	}
	c.verticesCreated.Add(float64(n))
}

func (c *Collector) AddEdgesCreated(n uint64) {
	if c == nil {
		return
	}
	c.edgesCreated.Add(float64(n))
}
