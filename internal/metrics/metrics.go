// Package metrics exposes Prometheus collectors for the API and the settle
// engine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homesplit"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	settlements     prometheus.Counter
	transfers       prometheus.Histogram
	unknownMembers  *prometheus.CounterVec
	balanceCache    *prometheus.CounterVec
	chargesCreated  *prometheus.CounterVec
	closures        prometheus.Counter
	recurringRuns   *prometheus.CounterVec
	exports         *prometheus.CounterVec
	publishFailures prometheus.Counter
}

// New registers every collector on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "settle", Name: "computations_total",
			Help: "Balance and transfer computations run.",
		}),
		transfers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "settle", Name: "transfers",
			Help:    "Transfers emitted per computation.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		unknownMembers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "settle", Name: "unknown_member_refs_total",
			Help: "Charge references to members outside the household, ignored.",
		}, []string{"role"}),
		balanceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "balances", Name: "cache_lookups_total",
			Help: "Balance report cache lookups by result.",
		}, []string{"result"}),
		chargesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "charges", Name: "created_total",
			Help: "Charges created by kind.",
		}, []string{"kind"}),
		closures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "closures", Name: "created_total",
			Help: "Periods closed.",
		}),
		recurringRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "recurring", Name: "charges_total",
			Help: "Recurring bills processed by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sheets", Name: "exports_total",
			Help: "Sheet exports by record type and outcome.",
		}, []string{"type", "outcome"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "amqp", Name: "publish_failures_total",
			Help: "Sync messages that could not be published.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.rateLimited,
		m.settlements, m.transfers, m.unknownMembers,
		m.balanceCache, m.chargesCreated, m.closures,
		m.recurringRuns, m.exports, m.publishFailures,
	)
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) Settled(transfers int) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.transfers.Observe(float64(transfers))
}

func (m *Metrics) UnknownMember(role string) {
	if m != nil {
		m.unknownMembers.WithLabelValues(role).Inc()
	}
}

func (m *Metrics) BalanceCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.balanceCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ChargeCreated(kind string) {
	if m != nil {
		m.chargesCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PeriodClosed() {
	if m != nil {
		m.closures.Inc()
	}
}

func (m *Metrics) Recurring(outcome string) {
	if m != nil {
		m.recurringRuns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Exported(recordType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.exports.WithLabelValues(recordType, outcome).Inc()
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.publishFailures.Inc()
	}
}
