// Package metrics exposes Prometheus instrumentation for the RAG service.
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment outcomes
const (
	OutcomeEnriched  = "enriched"
	OutcomeNoContext = "no_context"
	OutcomeFailed    = "failed"
)

// Collector owns a private registry so several instances can coexist in
// one process. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	enrichmentsTotal *prometheus.CounterVec
	retrievalResults prometheus.Histogram
	ingestedFiles    *prometheus.CounterVec
	ingestedChunks   prometheus.Counter

	logger *slog.Logger
}

// NewCollector registers all metrics under namespace
func NewCollector(namespace string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With("component", "metrics"),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.enrichmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Prompt enrichment requests by outcome",
		},
		[]string{"outcome"},
	)

	c.retrievalResults = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of chunks returned per retrieval",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	c.ingestedFiles = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_files_total",
			Help:      "PDF files processed by ingestion",
		},
		[]string{"status"},
	)

	c.ingestedChunks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks written by ingestion",
		},
	)

	c.logger.Debug("metrics collector initialized", "namespace", namespace)
	return c
}

// RecordHTTPRequest records one served request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEnrichment counts an enrichment by outcome
func (c *Collector) RecordEnrichment(outcome string) {
	if c == nil {
		return
	}
	c.enrichmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordRetrieval observes the size of a retrieval result
func (c *Collector) RecordRetrieval(results int) {
	if c == nil {
		return
	}
	c.retrievalResults.Observe(float64(results))
}

// RecordIngestion counts succeeded and failed files and written chunks
func (c *Collector) RecordIngestion(succeeded, failed, chunks int) {
	if c == nil {
		return
	}
	if succeeded > 0 {
		c.ingestedFiles.WithLabelValues("succeeded").Add(float64(succeeded))
	}
	if failed > 0 {
		c.ingestedFiles.WithLabelValues("failed").Add(float64(failed))
	}
	if chunks > 0 {
		c.ingestedChunks.Add(float64(chunks))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
