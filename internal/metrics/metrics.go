// Package metrics collects feed and importer metrics and exposes them to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records feed, store and importer metrics.
// It satisfies feed.Recorder, fetcher.Recorder and importer.Recorder.
type Collector struct {
	assembled      *prometheus.HistogramVec
	fetchFailures  *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	batchQueries   prometheus.Counter
	importedEvents prometheus.Counter
	importFailures prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		assembled: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventfeed_assembled_events",
			Help:    "Size of assembled feeds.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 250, 500, 1000},
		}, []string{"kind"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventfeed_fetch_failures_total",
			Help: "Failed event fetches.",
		}, []string{"kind"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventfeed_fetch_latency_seconds",
			Help:    "Event fetch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		batchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfeed_store_batch_queries_total",
			Help: "Event store queries issued by fetches.",
		}),
		importedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfeed_imported_events_total",
			Help: "Events upserted by the importer.",
		}),
		importFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfeed_import_failures_total",
			Help: "Failed source polls.",
		}),
	}

	reg.MustRegister(
		c.assembled,
		c.fetchFailures,
		c.fetchLatency,
		c.batchQueries,
		c.importedEvents,
		c.importFailures,
	)

	return c
}

// RecordAssembled observes the size of a freshly assembled feed.
func (c *Collector) RecordAssembled(kind string, size int) {
	c.assembled.WithLabelValues(kind).Observe(float64(size))
}

// RecordFetchFailure counts a failed fetch.
func (c *Collector) RecordFetchFailure(kind string) {
	c.fetchFailures.WithLabelValues(kind).Inc()
}

// RecordFetchLatency observes how long a fetch took.
func (c *Collector) RecordFetchLatency(kind string, d time.Duration) {
	c.fetchLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordBatchQueries counts store queries.
func (c *Collector) RecordBatchQueries(n int) {
	c.batchQueries.Add(float64(n))
}

// RecordImported counts imported events.
func (c *Collector) RecordImported(n int) {
	c.importedEvents.Add(float64(n))
}

// RecordImportFailure counts a failed source poll.
func (c *Collector) RecordImportFailure() {
	c.importFailures.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
