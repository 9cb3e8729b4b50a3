// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifebalance/internal/section"
)

const namespace = "lifebalance"

// Metrics holds every collector, registered on its own registry so tests
// can create as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	recordsCreated *prometheus.CounterVec
	logins         *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	workspacesOpen prometheus.Gauge
	corruptBlobs   *prometheus.CounterVec
	rateLimited    prometheus.Counter
	suspicious     *prometheus.CounterVec
	notifyFailures prometheus.Counter
}

var _ section.Notifier = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Records appended to a section collection.",
		}, []string{"section", "type"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login and register attempts by outcome.",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		workspacesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workspaces_open",
			Help:      "Device workspaces held in memory.",
		}),
		corruptBlobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_corrupt_blobs_total",
			Help:      "Stored values that could not be decoded and were replaced by defaults.",
		}, []string{"key"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspicious: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the suspicious request detector.",
		}, []string{"reason"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Record events that could not be published.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.recordsCreated,
		m.logins,
		m.httpRequests,
		m.httpDuration,
		m.workspacesOpen,
		m.corruptBlobs,
		m.rateLimited,
		m.suspicious,
		m.notifyFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordCreated counts a stored record. It never fails.
func (m *Metrics) RecordCreated(_ context.Context, e section.Event) error {
	m.recordsCreated.WithLabelValues(string(e.Kind), e.Type).Inc()
	return nil
}

// Login counts a login ("login") or register ("register") attempt.
func (m *Metrics) Login(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "missing_fields"
	}
	m.logins.WithLabelValues(kind, result).Inc()
}

// LoginError counts an attempt that failed on storage.
func (m *Metrics) LoginError(kind string) {
	m.logins.WithLabelValues(kind, "error").Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) WorkspaceOpened() { m.workspacesOpen.Inc() }
func (m *Metrics) WorkspaceClosed() { m.workspacesOpen.Dec() }

// CorruptBlob has the signature of a persist corrupt hook.
func (m *Metrics) CorruptBlob(key string, _ error) {
	m.corruptBlobs.WithLabelValues(key).Inc()
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Suspicious(reason string) {
	m.suspicious.WithLabelValues(reason).Inc()
}

func (m *Metrics) NotifyFailed() { m.notifyFailures.Inc() }

// CountFailures wraps n so that every error it returns is counted.
func (m *Metrics) CountFailures(n section.Notifier) section.Notifier {
	return section.NotifierFunc(func(ctx context.Context, e section.Event) error {
		err := n.RecordCreated(ctx, e)
		if err != nil {
			m.NotifyFailed()
		}
		return err
	})
}
