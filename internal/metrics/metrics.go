// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "skillsvault"

// Metrics implements ledger.Recorder and middleware.HTTPObserver.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	hoursMoved    prometheus.Counter
	retries       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_resolutions_total",
			Help:      "Skill request resolutions by decision and outcome",
		}, []string{"decision", "outcome"}),
		hoursMoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_hours_transferred_total",
			Help:      "Hours moved from requesters to providers by accepted requests",
		}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_retries_total",
			Help:      "Ledger units of work re-run after a serialization failure or deadlock",
		}, []string{"op"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification messages by kind and result",
		}, []string{"kind", "result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveResolution(decision, outcome string) {
	m.resolutions.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) ObserveTransfer(hours int64) {
	m.hoursMoved.Add(float64(hours))
}

func (m *Metrics) ObserveRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

// ObserveNotification counts notification outcomes: enqueued, failed,
// delivered, published.
func (m *Metrics) ObserveNotification(kind, result string) {
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
