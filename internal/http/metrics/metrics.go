// Package metrics registra las métricas Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de un redirect hacia un resource owner.
const (
	ResultRedirected     = "redirected"
	ResultUnknownService = "unknown_service"
	ResultDenied         = "denied"
	ResultError          = "error"
)

// LabelUnknown reemplaza valores de label que no vienen de la
// configuración (servicio inexistente, firewall no resuelto).
const LabelUnknown = "unknown"

const namespace = "oauthconnect"

// Metrics agrupa los collectors del servicio sobre un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        prometheus.Gauge
	redirectsTotal  *prometheus.CounterVec
}

// New crea y registra las métricas. Incluye los collectors de runtime y
// proceso.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de los requests HTTP",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests en vuelo",
		}),
		redirectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirects hacia resource owners por firewall, servicio y resultado",
		}, []string{"firewall", "service", "result"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.inflight,
		m.redirectsTotal,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler expone /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry permite a tests y al wiring inspeccionar los collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRedirect cuenta un intento de redirect. Nil-safe.
func (m *Metrics) ObserveRedirect(firewall, service, result string) {
	if m == nil {
		return
	}
	m.redirectsTotal.WithLabelValues(firewall, service, result).Inc()
}

// ObserveRequest registra un request terminado. Nil-safe.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Inflight devuelve una función que decrementa el gauge. Nil-safe.
func (m *Metrics) Inflight() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
