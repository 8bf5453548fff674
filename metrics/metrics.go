package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// --- Metrics ---

// Metrics holds all the Prometheus metrics for the console.
//
// Every recorder method is safe to call on a nil *Metrics, so components can
// be constructed without a registry (tests, one-shot commands).
type Metrics struct {
	wizardTransitions *prometheus.CounterVec
	wizardValidation  *prometheus.CounterVec
	chatReplies       *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	fetchErrors       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics for the console.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		wizardTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Step transitions taken by a wizard, labeled by flow and destination step.",
		}, []string{"flow", "from", "to"}),
		wizardValidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Forward transitions rejected by step validation.",
		}, []string{"flow", "step"}),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_replies_total",
			Help: "Assistant replies, labeled by how the reply was matched.",
		}, []string{"match"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time taken to resolve a single data-fetch query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Failed data-fetch queries.",
		}, []string{"query"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, labeled by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		m.wizardTransitions,
		m.wizardValidation,
		m.chatReplies,
		m.fetchDuration,
		m.fetchErrors,
		m.httpRequests,
	)
	return m
}

func (m *Metrics) WizardTransition(flow, from, to string) {
	if m == nil {
		return
	}
	m.wizardTransitions.WithLabelValues(flow, from, to).Inc()
}

func (m *Metrics) WizardValidationFailure(flow, step string) {
	if m == nil {
		return
	}
	m.wizardValidation.WithLabelValues(flow, step).Inc()
}

func (m *Metrics) AssistantReply(match string) {
	if m == nil {
		return
	}
	m.chatReplies.WithLabelValues(match).Inc()
}

// ObserveFetch records the duration of one query and counts it as failed
// when err is non-nil.
func (m *Metrics) ObserveFetch(query string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(query).Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(query).Inc()
	}
}

func (m *Metrics) HTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}
