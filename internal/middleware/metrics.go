package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wunderbrand"

// Metrics holds the Prometheus collectors for HTTP traffic and service events.
// It satisfies application.Metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge

	reportsGenerated *prometheus.CounterVec
	llmDuration      *prometheus.HistogramVec
	llmErrors        *prometheus.CounterVec
	syncFailures     *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
}

// NewMetrics registers collectors on reg. Pass prometheus.NewRegistry() in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "Requests currently being served.",
		}),
		reportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_generated_total",
			Help: "Reports generated by tier.",
		}, []string{"tier"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "llm", Name: "duration_seconds",
			Help:    "LLM call latency by provider.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
		llmErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "errors_total",
			Help: "Failed LLM calls by provider.",
		}, []string{"provider"}),
		syncFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "marketing", Name: "sync_failures_total",
			Help: "Marketing sync failures by operation.",
		}, []string{"op"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_events_total",
			Help: "Inbound webhooks by source and outcome.",
		}, []string{"source", "outcome"}),
	}
}

func (m *Metrics) ReportGenerated(tier string) { m.reportsGenerated.WithLabelValues(tier).Inc() }

func (m *Metrics) ObserveLLM(provider string, d time.Duration, err error) {
	m.llmDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.llmErrors.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) SyncFailed(op string) { m.syncFailures.WithLabelValues(op).Inc() }

func (m *Metrics) WebhookEvent(source, outcome string) {
	m.webhookEvents.WithLabelValues(source, outcome).Inc()
}

// Middleware tracks request metrics. The route label is the chi pattern so
// report IDs do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
