// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PassesTotal      *prometheus.CounterVec
	PassDuration     prometheus.Histogram
	ChannelFailures  prometheus.Counter
	MessagesScanned  prometheus.Counter
	SignalsStored    *prometheus.CounterVec
	ExtractionResult *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPass prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "telegram_signal_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PassesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "passes_total",
			Help:      "Total number of ingestion passes by status",
		}, []string{"status"}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pass_duration_seconds",
			Help:      "Ingestion pass duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		ChannelFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "channel_failures_total",
			Help:      "Total number of channels skipped after a failure",
		}),
		MessagesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "messages_scanned_total",
			Help:      "Total number of channel messages fetched",
		}),
		SignalsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "stored_total",
			Help:      "Total number of new signal rows by entry point",
		}, []string{"entry_point"}),
		ExtractionResult: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "extractions_total",
			Help:      "Total number of extractor runs by outcome",
		}, []string{"outcome"}),

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by operation and status code",
		}, []string{"operation", "code"}),

		LastSuccessfulPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of last successful ingestion pass",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// Entry points that store signals.
const (
	EntryPointAgent  = "agent"
	EntryPointSubmit = "submit"
)

// RecordPass records a finished ingestion pass.
func RecordPass(status string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.PassesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PassDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulPass.Set(float64(finishedUnix))
	}
}

// RecordChannelFailure increments the skipped channel counter.
func RecordChannelFailure() {
	DefaultMetrics.ChannelFailures.Inc()
}

// RecordMessagesScanned adds n fetched messages.
func RecordMessagesScanned(n int) {
	DefaultMetrics.MessagesScanned.Add(float64(n))
}

// RecordSignalsStored adds n new signal rows for an entry point.
func RecordSignalsStored(entryPoint string, n int) {
	DefaultMetrics.SignalsStored.WithLabelValues(entryPoint).Add(float64(n))
}

// RecordExtraction counts one extractor run.
func RecordExtraction(found bool) {
	outcome := "no_signal"
	if found {
		outcome = "signal"
	}
	DefaultMetrics.ExtractionResult.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest counts one API request.
func RecordAPIRequest(operation string, code int) {
	DefaultMetrics.APIRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
}
