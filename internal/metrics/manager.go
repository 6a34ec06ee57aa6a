// Package metrics owns the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitfocus"

// Outcome labels for remote LLM calls.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_response"
	OutcomeFailure     = "failure"
	OutcomeCached      = "cached"
	OutcomePlaceholder = "placeholder"
)

type Manager struct {
	// counters
	CounterRequests       *prometheus.CounterVec
	CounterRemoteCalls    *prometheus.CounterVec
	CounterLogEntries     prometheus.Counter
	CounterPlansCreated   prometheus.Counter
	CounterRequestPanics  prometheus.Counter
	CounterCorruptStorage prometheus.Counter

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistRequestDuration    prometheus.Histogram
	HistRemoteCallDuration *prometheus.HistogramVec
}

// NewTestManager returns a manager backed by a throwaway registry.
func NewTestManager() *Manager {
	return NewManager("test", prometheus.NewRegistry())
}

// NewTestManagerAndRegistry is NewTestManager that also hands out the registry for assertions.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("test", reg), reg
}

// NewManager registers the collectors in reg. Every application instance owns its registry so that several servers
// can run in one process during tests.
func NewManager(subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of handled HTTP requests",
		}, []string{"method", "status"}),
		CounterRemoteCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_calls_total",
			Help:      "LLM adapter invocations by adapter and outcome",
		}, []string{"adapter", "outcome"}),
		CounterLogEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "log_entries_total",
			Help:      "The total number of appended workout log entries",
		}),
		CounterPlansCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plans_created_total",
			Help:      "The total number of stored workout plans",
		}),
		CounterRequestPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		CounterCorruptStorage: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "corrupt_storage_total",
			Help:      "Stored values that failed to decode and were treated as absent",
		}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}),
		HistRemoteCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_call_duration_seconds",
			Help:      "Duration of LLM completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"adapter"}),
	}
}
