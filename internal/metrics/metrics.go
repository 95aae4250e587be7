// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spendlens"

// ─── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by route, method and status class.",
}, []string{"route", "method", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// ─── Aggregation ────────────────────────────────────────────────────────────

var SummaryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "summary",
	Name:      "aggregation_seconds",
	Help:      "Time spent aggregating expenses into a summary.",
	Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
}, []string{"granularity"})

var SummaryRecords = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "summary",
	Name:      "records",
	Help:      "Number of expense records per aggregation.",
	Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
})

var SummaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "summary",
	Name:      "cache_lookups_total",
	Help:      "Summary cache lookups by result (hit or miss).",
}, []string{"result"})

// ─── Expenses and events ────────────────────────────────────────────────────

var ExpenseMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "expenses",
	Name:      "mutations_total",
	Help:      "Expense writes by operation.",
}, []string{"operation"})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Expense events published to the broker by outcome.",
}, []string{"outcome"})

var EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "worker",
	Name:      "events_processed_total",
	Help:      "Expense events handled by the worker by outcome.",
}, []string{"outcome"})

var LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "live",
	Name:      "sessions",
	Help:      "Open WebSocket sessions.",
})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusClass buckets an HTTP status into 2xx, 3xx, 4xx or 5xx.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
