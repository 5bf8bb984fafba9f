// Package metrics exposes Prometheus collectors for check resolution and
// impact application.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storycore"

// Metrics holds every collector on a private registry so tests and multiple
// servers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal     *prometheus.CounterVec
	checkDice       prometheus.Histogram
	impactsTotal    *prometheus.CounterVec
	eventRunsTotal  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors, plus Go and process collectors, on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		// checksTotal counts resolved checks by outcome tier
		checksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total resolved checks by outcome tier",
		}, []string{"tier"}),
		// checkDice tracks the size of the rolled dice pool
		checkDice: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_dice_rolled",
			Help:      "Number of dice rolled per check",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
		}),
		impactsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impacts_applied_total",
			Help:      "Total impacts applied by type and mode",
		}, []string{"type", "mode"}),
		eventRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_runs_total",
			Help:      "Total event runs by result",
		}, []string{"result"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"route", "code"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCheck records one resolved check.
func (m *Metrics) ObserveCheck(tier string, diceRolled int) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(tier).Inc()
	m.checkDice.Observe(float64(diceRolled))
}

// ObserveImpacts adds n impacts of the given type. mode is "preview" or
// "commit".
func (m *Metrics) ObserveImpacts(impactType, mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.impactsTotal.WithLabelValues(impactType, mode).Add(float64(n))
}

// ObserveEventRun records one event run; result is "ok" or "error".
func (m *Metrics) ObserveEventRun(result string) {
	if m == nil {
		return
	}
	m.eventRunsTotal.WithLabelValues(result).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, code).Observe(elapsed.Seconds())
}
