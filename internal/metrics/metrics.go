package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks HTTP requests by path and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "code"})

	// HTTPRequestDuration tracks HTTP request latency by path
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// RecordsProcessedTotal tracks parsed name/address records by input mode
	RecordsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgroup_records_processed_total",
		Help: "Total number of name/address records grouped",
	}, []string{"mode"})

	// GroupsPerRun tracks how many groups each run produced
	GroupsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "addrgroup_groups_per_run",
		Help:    "Number of groups produced by one grouping run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	// ProcessingDuration tracks end-to-end processing latency by input mode
	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "addrgroup_processing_duration_seconds",
		Help:    "Time to parse, group and format one submission",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// ProcessingFailuresTotal tracks failed submissions by error kind
	ProcessingFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgroup_processing_failures_total",
		Help: "Total number of failed submissions",
	}, []string{"kind"})

	// TranslationsTotal tracks translation calls by backend and outcome
	TranslationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgroup_translations_total",
		Help: "Total number of address translations",
	}, []string{"backend", "outcome"})

	// TranslationRetriesTotal tracks retried translation attempts by backend
	TranslationRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgroup_translation_retries_total",
		Help: "Total number of retried translation attempts",
	}, []string{"backend"})

	// WSSessionsActive tracks currently open WebSocket sessions
	WSSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "addrgroup_ws_sessions_active",
		Help: "Number of open WebSocket sessions",
	})

	// WSMessagesTotal tracks WebSocket requests by outcome
	WSMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgroup_ws_messages_total",
		Help: "Total number of WebSocket requests handled",
	}, []string{"outcome"})
)

// RecordHTTPRequest increments the HTTP request counter and observes latency
func RecordHTTPRequest(path, code string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(path, code).Inc()
	HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordProcessed records a successful grouping run
func RecordProcessed(mode string, records, groups int, duration time.Duration) {
	RecordsProcessedTotal.WithLabelValues(mode).Add(float64(records))
	GroupsPerRun.Observe(float64(groups))
	ProcessingDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordProcessingFailure increments the failure counter for an error kind
func RecordProcessingFailure(kind string) {
	ProcessingFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordTranslation increments the translation counter
func RecordTranslation(backend, outcome string) {
	TranslationsTotal.WithLabelValues(backend, outcome).Inc()
}

// RecordTranslationRetry increments the retry counter for a backend
func RecordTranslationRetry(backend string) {
	TranslationRetriesTotal.WithLabelValues(backend).Inc()
}

// SetWSSessionOpen adjusts the open session gauge
func SetWSSessionOpen(open bool) {
	if open {
		WSSessionsActive.Inc()
		return
	}
	WSSessionsActive.Dec()
}

// RecordWSMessage increments the WebSocket request counter
func RecordWSMessage(outcome string) {
	WSMessagesTotal.WithLabelValues(outcome).Inc()
}
