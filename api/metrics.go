package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsCollector exposes Prometheus counters for security events and form
// activity. Each API instance owns its own registry so parallel test servers
// never collide on metric registration.
type metricsCollector struct {
	registry *prometheus.Registry

	securityEvents *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

func newMetricsCollector() *metricsCollector {
	m := &metricsCollector{
		registry: prometheus.NewRegistry(),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safesite",
			Name:      "security_events_total",
			Help:      "Security audit events by type.",
		}, []string{"event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safesite",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(m.securityEvents, m.httpRequests)
	return m
}

func (m *metricsCollector) recordEvent(event SecurityEvent) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(string(event)).Inc()
}

func (m *metricsCollector) recordRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *metricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// countRequests is middleware that records one counter increment per
// request, labeled by the matched chi route pattern and response status.
func (a *API) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		a.metrics.recordRequest(route, ww.Status())
	})
}
