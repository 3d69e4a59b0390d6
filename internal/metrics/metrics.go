// Package metrics provides Prometheus instrumentation for the token server.
// Each Collector owns its registry so servers and tests never share state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the issuance metrics and the registry they are exposed from.
type Collector struct {
	registry *prometheus.Registry

	tokensIssued  *prometheus.CounterVec
	issueDuration prometheus.Histogram
	rateLimitHits prometheus.Counter
}

// New creates a Collector with all metrics registered on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{registry: reg}

	// tokensIssued counts issuance attempts by result ("success" or an error code).
	c.tokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengen_tokens_issued_total",
		Help: "Total token issuance attempts by result",
	}, []string{"result"})
	reg.MustRegister(c.tokensIssued)

	c.issueDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokengen_issue_duration_seconds",
		Help:    "Token issuance latency in seconds",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
	})
	reg.MustRegister(c.issueDuration)

	c.rateLimitHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokengen_rate_limit_hits_total",
		Help: "Total issuance requests rejected by the rate limiter",
	})
	reg.MustRegister(c.rateLimitHits)

	return c
}

// ObserveIssue records one issuance attempt.
func (c *Collector) ObserveIssue(result string, elapsed time.Duration) {
	c.tokensIssued.WithLabelValues(result).Inc()
	c.issueDuration.Observe(elapsed.Seconds())
}

// ObserveRateLimited records one rejected request.
func (c *Collector) ObserveRateLimited() {
	c.rateLimitHits.Inc()
}

// Registry exposes the underlying registry (used by tests to gather values).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics endpoint for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
