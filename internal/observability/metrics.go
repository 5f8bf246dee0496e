package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	sends           *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	outbox          *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticket_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_notification_sends_total",
			Help: "Notification sends by event type, recipient role and outcome.",
		}, []string{"event", "role", "outcome"}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_notification_dispatches_total",
			Help: "Dispatch batches by event type.",
		}, []string{"event"}),
		outbox: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_outbox_deliveries_total",
			Help: "Outbox delivery attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSend counts a single channel send outcome.
func (m *Metrics) RecordSend(event, role string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	m.sends.WithLabelValues(event, role, outcome).Inc()
}

// RecordDispatch counts a dispatch batch.
func (m *Metrics) RecordDispatch(event string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(event).Inc()
}

// RecordOutbox counts an outbox delivery outcome: delivered, retry or failed.
func (m *Metrics) RecordOutbox(outcome string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(outcome).Inc()
}
