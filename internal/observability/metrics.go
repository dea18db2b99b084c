package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cargo_api"

// Metrics holds the Prometheus collectors for the reporting service.
type Metrics struct {
	// HTTP metrics.
	HTTPRequests        *prometheus.CounterVec   // labels: route, method, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: route

	// Report metrics.
	ReportDuration *prometheus.HistogramVec // labels: report
	RecordsScanned *prometheus.CounterVec   // labels: report
	ReportErrors   *prometheus.CounterVec   // labels: report

	// Prediction metrics.
	PredictionForwards    *prometheus.CounterVec // labels: outcome={success,error,rejected}
	PredictionBreakerOpen prometheus.Gauge
	PredictionsPublished  *prometheus.CounterVec // labels: outcome={success,error}

	// Shipment ingest metrics.
	IngestMessages      *prometheus.CounterVec // labels: outcome={consumed,invalid}
	IngestRecordsLoaded prometheus.Counter
	IngestBatchDuration prometheus.Histogram
	IngestRunning       prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.ReportDuration,
		m.RecordsScanned,
		m.ReportErrors,
		m.PredictionForwards,
		m.PredictionBreakerOpen,
		m.PredictionsPublished,
		m.IngestMessages,
		m.IngestRecordsLoaded,
		m.IngestBatchDuration,
		m.IngestRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by route, method and status code."),
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      help("HTTP request latency by route."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
		ReportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      help("Time to fetch, normalize and assemble a report."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"report"}),
		RecordsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_scanned_total",
			Help:      help("Shipment records read from the datastore per report."),
		}, []string{"report"}),
		ReportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      help("Reports that failed because the datastore returned an error."),
		}, []string{"report"}),
		PredictionForwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_forwards_total",
			Help:      help("Requests forwarded to the prediction API by outcome."),
		}, []string{"outcome"}),
		PredictionBreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prediction_breaker_open",
			Help:      help("1 when the prediction API circuit breaker is open, 0 otherwise."),
		}),
		PredictionsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_published_total",
			Help:      help("Prediction events written to Kafka by outcome."),
		}, []string{"outcome"}),
		IngestMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      help("Shipment messages read from Kafka by outcome."),
		}, []string{"outcome"}),
		IngestRecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_loaded_total",
			Help:      help("Shipment records written to the datastore by the ingest pipeline."),
		}),
		IngestBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_duration_seconds",
			Help:      help("Time to extract, decode, load and commit one batch."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_running",
			Help:      help("1 while the shipment ingest pipeline is running, 0 otherwise."),
		}),
	}
}
