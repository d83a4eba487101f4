package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports metrics to Prometheus format. It forwards every
// recording to an in-process Collector so snapshots stay available without
// scraping.
type PrometheusExporter struct {
	collector *Collector

	requests *prometheus.CounterVec
	denials  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakine_requests_total",
				Help: "Total number of access-control operations",
			},
			[]string{"operation"},
		),
		denials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakine_denials_total",
				Help: "Total number of denied access decisions",
			},
			[]string{"operation"},
		),
		errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakine_errors_total",
				Help: "Total number of failed access-control operations",
			},
			[]string{"operation"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kakine_request_duration_seconds",
				Help:    "Duration of access-control operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest records one evaluated operation.
func (e *PrometheusExporter) RecordRequest(op string) {
	e.requests.WithLabelValues(op).Inc()
	if e.collector != nil {
		e.collector.RecordRequest(op)
	}
}

// RecordDenial records an operation that resulted in a denied decision.
func (e *PrometheusExporter) RecordDenial(op string) {
	e.denials.WithLabelValues(op).Inc()
	if e.collector != nil {
		e.collector.RecordDenial(op)
	}
}

// RecordError records an operation that failed.
func (e *PrometheusExporter) RecordError(op string) {
	e.errors.WithLabelValues(op).Inc()
	if e.collector != nil {
		e.collector.RecordError(op)
	}
}

// RecordDuration records the duration of an operation in seconds.
func (e *PrometheusExporter) RecordDuration(op string, durationSeconds float64) {
	e.duration.WithLabelValues(op).Observe(durationSeconds)
	if e.collector != nil {
		e.collector.RecordDuration(op, durationSeconds)
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.Handler()
}
