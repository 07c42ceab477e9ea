package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blackfile"

// Metrics holds the service collectors. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	issued        prometheus.Counter
	uploadedBytes prometheus.Counter
	verifications *prometheus.CounterVec
	servedBytes   prometheus.Counter
	notifications *prometheus.CounterVec
	swept         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		issued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_issued_total",
			Help:      "Transfers created.",
		}),
		uploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_uploaded_bytes_total",
			Help:      "Plaintext bytes accepted for transfer.",
		}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Download verification attempts by outcome.",
		}, []string{"outcome"}),
		servedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_served_bytes_total",
			Help:      "Plaintext bytes released to recipients.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Email notifications by kind and status.",
		}, []string{"kind", "status"}),
		swept: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_total",
			Help:      "Records and blobs removed by the sweeper.",
		}, []string{"kind"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) TransferIssued(size int64) {
	m.issued.Inc()
	m.uploadedBytes.Add(float64(size))
}

// VerifyOutcome counts a verification by outcome, e.g. "success" or an error code.
func (m *Metrics) VerifyOutcome(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BytesServed(n int64) {
	m.servedBytes.Add(float64(n))
}

func (m *Metrics) NotificationSent(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

// Swept counts n removed items of the given kind ("records" or "orphans").
func (m *Metrics) Swept(kind string, n int) {
	if n > 0 {
		m.swept.WithLabelValues(kind).Add(float64(n))
	}
}
