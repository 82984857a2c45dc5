package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
)

// IngestMetrics holds the pipeline metrics.  It satisfies the column observer
// of the record builder and the lookup observer of the name resolver.
type IngestMetrics struct {
	// Pipeline
	FilesIngestedTotal *prometheus.CounterVec
	IngestDuration     *prometheus.HistogramVec
	ActiveIngestions   *prometheus.GaugeVec

	// Record builder
	ColumnsTotal        *prometheus.CounterVec
	ColumnsSkippedTotal *prometheus.CounterVec

	// Name resolution
	ResolverLookupsTotal *prometheus.CounterVec

	// Reference search
	ReferencesFound *prometheus.HistogramVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Downstream sinks
	SinkErrorsTotal *prometheus.CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultIngestDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultReferenceBuckets      = []float64{0, 1, 2, 5, 10, 25, 50, 100}
)

// NewIngestMetrics registers all metrics on collector.
func NewIngestMetrics(collector MetricsCollector) *IngestMetrics {
	m := &IngestMetrics{}

	m.FilesIngestedTotal = collector.Counter("files_total", "Lab-data files ingested", "format", "status")
	m.IngestDuration = collector.Histogram("duration_seconds", "Time to ingest one file", DefaultIngestDurationBuckets, "format")
	m.ActiveIngestions = collector.Gauge("active", "Ingestions in progress")

	m.ColumnsTotal = collector.Counter("columns_total", "Columns consumed by the record builder", "kind")
	m.ColumnsSkippedTotal = collector.Counter("columns_skipped_total", "Columns skipped by the record builder")

	m.ResolverLookupsTotal = collector.Counter("resolver_lookups_total", "Substance name lookups", "outcome")

	m.ReferencesFound = collector.Histogram("references_found", "Referencing entries found per sample", DefaultReferenceBuckets)

	m.HTTPRequestsTotal = collector.Counter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.Histogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.SinkErrorsTotal = collector.Counter("sink_errors_total", "Failures writing to downstream sinks", "sink")

	return m
}

// ObserveColumn counts a column seen by the record builder.
func (m *IngestMetrics) ObserveColumn(kind reaction.ColumnKind, accepted bool) {
	if !accepted {
		m.ColumnsSkippedTotal.WithLabelValues().Inc()
		return
	}
	m.ColumnsTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveLookup counts a name-resolution outcome.
func (m *IngestMetrics) ObserveLookup(outcome string) {
	m.ResolverLookupsTotal.WithLabelValues(outcome).Inc()
}

// Helpers

func RecordIngestion(metrics *IngestMetrics, format string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.FilesIngestedTotal.WithLabelValues(format, status).Inc()
	metrics.IngestDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func RecordHTTPRequest(metrics *IngestMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordReferences(metrics *IngestMetrics, found int) {
	metrics.ReferencesFound.WithLabelValues().Observe(float64(found))
}

func RecordSinkError(metrics *IngestMetrics, sink string) {
	metrics.SinkErrorsTotal.WithLabelValues(sink).Inc()
}

//Personal.AI order the ending
