// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the workflow and HTTP layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	submissions       prometheus.Counter
	partialFailures   prometheus.Counter
	reviewTransitions *prometheus.CounterVec
	inviteResponses   *prometheus.CounterVec
	counterIncrements *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	gatherer          prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "projectshelf_submissions_total",
			Help: "Total number of submitted projects",
		}),
		partialFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "projectshelf_submission_partial_failures_total",
			Help: "Submissions whose project was stored but some members were not linked",
		}),
		reviewTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projectshelf_review_transitions_total",
			Help: "Project status transitions",
		}, []string{"from", "to"}),
		inviteResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projectshelf_invite_responses_total",
			Help: "Collaboration invite responses",
		}, []string{"decision"}),
		counterIncrements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projectshelf_project_counter_increments_total",
			Help: "View and download counter increments",
		}, []string{"counter"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "projectshelf_http_request_duration_ms",
			Help:    "Latency of HTTP requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route", "status"}),
		gatherer: gatherer,
	}
}

// NewDefault registers on the global Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func (m *Metrics) IncrementSubmissions() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

func (m *Metrics) IncrementPartialFailures() {
	if m == nil {
		return
	}
	m.partialFailures.Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.reviewTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordInviteResponse(decision string) {
	if m == nil {
		return
	}
	m.inviteResponses.WithLabelValues(decision).Inc()
}

func (m *Metrics) RecordCounter(counter string) {
	if m == nil {
		return
	}
	m.counterIncrements.WithLabelValues(counter).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(float64(elapsed.Microseconds()) / 1000)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
