// Package metrics exposes prometheus instruments for the request pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's prometheus instruments. Label cardinality is
// kept low on purpose: route template and limiter name, never tenant ids.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RateLimitDecisions *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	QuotaDecisions     *prometheus.CounterVec
	PartitionsActive   prometheus.Gauge
}

// New registers the instruments on the given registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the instruments on a custom registerer (tests).
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limit decisions by limiter name and outcome",
			},
			[]string{"limiter", "outcome"}, // outcome: allowed, throttled
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_cache_lookups_total",
				Help: "Tenant directory cache lookups by outcome",
			},
			[]string{"outcome"}, // outcome: hit, miss, expired
		),
		QuotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quota_decisions_total",
				Help: "Plan quota decisions by resource and outcome",
			},
			[]string{"resource", "outcome"}, // outcome: allowed, exceeded
		),
		PartitionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenant_partitions_provisioned_total",
				Help: "Number of tenant partitions provisioned by this process",
			},
		),
	}
}

// GinMiddleware records request totals and latency per route template.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
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
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
