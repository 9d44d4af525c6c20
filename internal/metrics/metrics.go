// Package metrics holds the Prometheus collectors for the challenge service.
// All recording methods are nil-safe so components can run without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "challenge"

// Cache lookup results
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
	ResultOK    = "ok"
)

// Metrics holds all collectors
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	CacheWrites      *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	RateLimitUsage   *prometheus.GaugeVec
	StatsDuration    prometheus.Histogram
}

// New creates and registers all collectors with reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		CacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Cache writes by result (ok, error)",
		}, []string{"result"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strava",
			Name:      "requests_total",
			Help:      "Requests made to Strava by endpoint and result",
		}, []string{"endpoint", "result"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "strava",
			Name:      "request_duration_seconds",
			Help:      "Latency of Strava requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RateLimitUsage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strava",
			Name:      "rate_limit_usage",
			Help:      "Strava rate limit usage reported by the last response",
		}, []string{"window"}),
		StatsDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stats_duration_seconds",
			Help:      "Time to build a stats response",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// CacheLookup records a cache read outcome
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// CacheWrite records a cache write outcome
func (m *Metrics) CacheWrite(result string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(result).Inc()
}

// UpstreamRequest records one Strava call
func (m *Metrics) UpstreamRequest(endpoint, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, result).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RateLimit records the short (15 min) and daily usage counts
func (m *Metrics) RateLimit(shortUsage, dailyUsage int) {
	if m == nil {
		return
	}
	m.RateLimitUsage.WithLabelValues("short").Set(float64(shortUsage))
	m.RateLimitUsage.WithLabelValues("daily").Set(float64(dailyUsage))
}

// StatsBuilt records how long a stats response took
func (m *Metrics) StatsBuilt(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StatsDuration.Observe(elapsed.Seconds())
}
