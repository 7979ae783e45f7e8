// Package metrics exposes Prometheus instrumentation for the workflow engine
// and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"expertcheck/internal/models"
)

const namespace = "expertcheck"

// Commit outcomes used as label values.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Metrics holds all collectors. Methods are safe to call on a nil *Metrics.
type Metrics struct {
	SubmissionsTotal  prometheus.Counter
	ResponsesTotal    prometheus.Counter
	TransitionsTotal  *prometheus.CounterVec
	CommitsTotal      *prometheus.CounterVec
	CommitDuration    prometheus.Histogram
	ReconcilesTotal   *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "submissions_total",
			Help:      "Total number of content items submitted",
		}),
		ResponsesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "responses_total",
			Help:      "Total number of expert responses received",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Content status transitions",
		}, []string{"from", "to"}),
		CommitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "commits_total",
			Help:      "Select-and-commit attempts by outcome",
		}, []string{"outcome", "reconciliation"}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "commit_duration_seconds",
			Help:      "Duration of select-and-commit attempts",
			Buckets:   prometheus.DefBuckets,
		}),
		ReconcilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "reconciles_total",
			Help:      "Reconciliation runs by outcome",
		}, []string{"outcome"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Submitted() {
	if m == nil {
		return
	}
	m.SubmissionsTotal.Inc()
}

func (m *Metrics) ResponseReceived() {
	if m == nil {
		return
	}
	m.ResponsesTotal.Inc()
}

func (m *Metrics) Transitioned(from, to models.ContentStatus) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

// CommitFinished records one commit attempt.
func (m *Metrics) CommitFinished(outcome string, needsReconciliation bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommitsTotal.WithLabelValues(outcome, strconv.FormatBool(needsReconciliation)).Inc()
	m.CommitDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.ReconcilesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
