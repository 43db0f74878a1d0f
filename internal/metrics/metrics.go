// Package metrics exposes Prometheus counters for the ledger and HTTP layer.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletwise"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transactionsAdded    *prometheus.CounterVec
	duplicatesDetected   prometheus.Counter
	transactionsDeleted  *prometheus.CounterVec
	transactionsRestored *prometheus.CounterVec
	undoExpired          prometheus.Counter
	notifierFailures     *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New creates and registers all collectors. env is attached as a constant label.
func New(env string) *Metrics {
	constLabels := prometheus.Labels{"env": env}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactionsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "transactions_added_total",
			Help: "Transactions written to the ledger.", ConstLabels: constLabels,
		}, []string{"type"}),
		duplicatesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "duplicates_detected_total",
			Help: "Add requests rejected as near-duplicates.", ConstLabels: constLabels,
		}),
		transactionsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "transactions_deleted_total",
			Help: "Transactions soft-deleted.", ConstLabels: constLabels,
		}, []string{"type"}),
		transactionsRestored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "transactions_restored_total",
			Help: "Soft-deleted transactions restored by undo.", ConstLabels: constLabels,
		}, []string{"type"}),
		undoExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "undo_expired_total",
			Help: "Undo attempts after the undo window closed.", ConstLabels: constLabels,
		}),
		notifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "activity", Name: "notifier_failures_total",
			Help: "Activity notifications that failed.", ConstLabels: constLabels,
		}, []string{"notifier"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.", ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactionsAdded,
		m.duplicatesDetected,
		m.transactionsDeleted,
		m.transactionsRestored,
		m.undoExpired,
		m.notifierFailures,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) TransactionAdded(txType string) {
	if m == nil {
		return
	}
	m.transactionsAdded.WithLabelValues(txType).Inc()
}

func (m *Metrics) DuplicateDetected() {
	if m == nil {
		return
	}
	m.duplicatesDetected.Inc()
}

func (m *Metrics) TransactionDeleted(txType string) {
	if m == nil {
		return
	}
	m.transactionsDeleted.WithLabelValues(txType).Inc()
}

func (m *Metrics) TransactionRestored(txType string) {
	if m == nil {
		return
	}
	m.transactionsRestored.WithLabelValues(txType).Inc()
}

func (m *Metrics) UndoExpired() {
	if m == nil {
		return
	}
	m.undoExpired.Inc()
}

func (m *Metrics) NotifierFailed(notifier string) {
	if m == nil {
		return
	}
	m.notifierFailures.WithLabelValues(notifier).Inc()
}

// Middleware records request counts and latency, labelled by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
