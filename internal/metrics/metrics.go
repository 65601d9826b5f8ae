// Package metrics exposes Prometheus collectors for the ledger and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finsheet/internal/core"
)

const namespace = "finsheet"

// Metrics implements ledger.Observer and records HTTP traffic.
type Metrics struct {
	registry *prometheus.Registry

	appends      *prometheus.CounterVec
	rotations    prometheus.Counter
	storeErrors  *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rateLimited  prometheus.Counter
	botUpdates   *prometheus.CounterVec
	activePeriod *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_appended_total",
			Help:      "Transactions appended to the ledger, by currency and result.",
		}, []string{"currency", "result"}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partition_rotations_total",
			Help:      "Monthly partitions created by rotation.",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed spreadsheet store calls, by ledger operation.",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		botUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Chat updates by kind and authorization.",
		}, []string{"kind", "authorized"}),
		activePeriod: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_partition_info",
			Help:      "Set to 1 for the partition currently receiving appends.",
		}, []string{"partition"}),
	}
	reg.MustRegister(
		m.appends, m.rotations, m.storeErrors,
		m.requests, m.duration, m.rateLimited,
		m.botUpdates, m.activePeriod,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAppend(currency core.Currency, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.appends.WithLabelValues(currency.String(), result).Inc()
}

func (m *Metrics) ObserveRotation(from, to string) {
	m.rotations.Inc()
	if from != "" {
		m.activePeriod.DeleteLabelValues(from)
	}
	m.activePeriod.WithLabelValues(to).Set(1)
}

func (m *Metrics) ObserveStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) ObserveBotUpdate(kind string, authorized bool) {
	m.botUpdates.WithLabelValues(kind, strconv.FormatBool(authorized)).Inc()
}
