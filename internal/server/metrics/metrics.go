// Package metrics provides prometheus collectors for the lock server
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for lock and delete operations
type Metrics struct {
	// Lock operation metrics
	lockOperationsTotal *prometheus.CounterVec
	expiredLocksRemoved prometheus.Counter

	// Safe delete metrics
	deleteRefusalsTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec

	// Feed metrics
	feedSubscribers prometheus.Gauge
}

// New creates and registers server metrics
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.lockOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shotsync_lock_operations_total",
			Help: "Total number of lock operations",
		},
		[]string{"operation", "resource_type", "result"}, // result: granted, denied, error
	)

	m.expiredLocksRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shotsync_expired_locks_removed_total",
			Help: "Total number of expired lock rows removed by the janitor",
		},
	)

	m.deleteRefusalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shotsync_delete_refusals_total",
			Help: "Total number of deletions refused because of blocking locks",
		},
		[]string{"resource"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shotsync_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "status"},
	)

	m.feedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shotsync_feed_subscribers",
			Help: "Number of connected change feed subscribers",
		},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.lockOperationsTotal.Describe(ch)
	m.expiredLocksRemoved.Describe(ch)
	m.deleteRefusalsTotal.Describe(ch)
	m.httpRequestDuration.Describe(ch)
	m.feedSubscribers.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.lockOperationsTotal.Collect(ch)
	m.expiredLocksRemoved.Collect(ch)
	m.deleteRefusalsTotal.Collect(ch)
	m.httpRequestDuration.Collect(ch)
	m.feedSubscribers.Collect(ch)
}

// RecordLockOperation records the outcome of acquire/refresh/release/query.
// A nil receiver is a no-op so handlers can run without metrics.
func (m *Metrics) RecordLockOperation(operation, resourceType, result string) {
	if m == nil {
		return
	}
	m.lockOperationsTotal.WithLabelValues(operation, resourceType, result).Inc()
}

// RecordExpiredLocksRemoved adds the janitor sweep result
func (m *Metrics) RecordExpiredLocksRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredLocksRemoved.Add(float64(n))
}

// RecordDeleteRefusal counts a refused safe delete
func (m *Metrics) RecordDeleteRefusal(resource string) {
	if m == nil {
		return
	}
	m.deleteRefusalsTotal.WithLabelValues(resource).Inc()
}

// ObserveRequest records HTTP request latency
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, statusClass(status)).Observe(d.Seconds())
}

// SetFeedSubscribers sets current subscriber count
func (m *Metrics) SetFeedSubscribers(n int) {
	if m == nil {
		return
	}
	m.feedSubscribers.Set(float64(n))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
