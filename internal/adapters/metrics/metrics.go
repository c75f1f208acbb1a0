package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics provides observability for the registration server.
// Each instance owns its registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RegistrationsStored *prometheus.CounterVec
	StepRejected        *prometheus.CounterVec
	StoreErrors         *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	ConfirmationEmails  *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "camp_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: latencyBuckets,
		}, []string{"route"}),
		RegistrationsStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_registrations_submitted_total",
			Help: "Registrations successfully appended, by category",
		}, []string{"category"}),
		StepRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_wizard_step_rejected_total",
			Help: "Wizard advances or submissions blocked by validation, by step",
		}, []string{"step"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_store_errors_total",
			Help: "Registration store failures by operation",
		}, []string{"op"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_admin_login_attempts_total",
			Help: "Admin login attempts by result",
		}, []string{"result"}),
		ConfirmationEmails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_confirmation_emails_total",
			Help: "Confirmation email sends by result",
		}, []string{"result"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "camp_db_query_duration_seconds",
			Help:    "SQLite statement latency by verb",
			Buckets: latencyBuckets,
		}, []string{"verb"}),
	}
}

// Handler exposes the Prometheus text exposition for this registry.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Registry returns the underlying registry for callers that add their own collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records one finished request.
func (m *Metrics) ObserveHTTPRequest(route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveQuery satisfies storage.QueryObserver.
func (m *Metrics) ObserveQuery(verb string, d time.Duration) {
	m.QueryDuration.WithLabelValues(verb).Observe(d.Seconds())
}

// IncRegistration records a stored registration.
func (m *Metrics) IncRegistration(category string) {
	m.RegistrationsStored.WithLabelValues(category).Inc()
}

// IncStepRejected records a validation failure on step.
func (m *Metrics) IncStepRejected(step string) {
	m.StepRejected.WithLabelValues(step).Inc()
}

// IncStoreError records a store failure.
func (m *Metrics) IncStoreError(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}

// IncLogin records a login attempt outcome ("success", "invalid", "locked").
func (m *Metrics) IncLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// IncConfirmationEmail records a confirmation email outcome ("sent", "failed").
func (m *Metrics) IncConfirmationEmail(result string) {
	m.ConfirmationEmails.WithLabelValues(result).Inc()
}

// RegisterGaugeFunc exposes a value computed on scrape, e.g. the open wizard count.
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}
