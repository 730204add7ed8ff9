package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	journalRecordsTotal   *prometheus.CounterVec
	journalFailuresTotal  *prometheus.CounterVec
	mirrorFailuresTotal   *prometheus.CounterVec
	injectedFailuresTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the mock server.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mock_http_requests_total",
			Help: "Total number of HTTP requests served by the mock.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mock_http_latency_seconds",
			Help:    "Latency distribution for mock HTTP requests.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})

		journalRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_records_total",
			Help: "Total number of records appended to resource journals.",
		}, []string{"resource", "operation"})

		journalFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_write_failures_total",
			Help: "Total number of journal appends that failed.",
		}, []string{"resource"})

		mirrorFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_mirror_failures_total",
			Help: "Total number of journal entries a mirror failed to receive.",
		}, []string{"sink"})

		injectedFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mock_injected_failures_total",
			Help: "Total number of responses replaced by an injected failure.",
		}, []string{"reason", "status"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			journalRecordsTotal,
			journalFailuresTotal,
			mirrorFailuresTotal,
			injectedFailuresTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// JournalRecords exposes the counter of appended journal records.
func JournalRecords() *prometheus.CounterVec {
	RegisterMetrics()
	return journalRecordsTotal
}

// JournalFailures exposes the counter of failed journal appends.
func JournalFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return journalFailuresTotal
}

// MirrorFailures exposes the counter of failed mirror deliveries.
func MirrorFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return mirrorFailuresTotal
}

// InjectedFailures exposes the counter of fault-injected responses.
func InjectedFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return injectedFailuresTotal
}
