package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics of the client and the stub backend.
// Each collector owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Outgoing graph service calls
	ClientRequests *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec
	BreakerOpen    prometheus.Gauge

	// Stub backend
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	clientRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_client_requests_total",
			Help:      "Total number of graph service requests",
		},
		[]string{"operation", "status"},
	)

	clientDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_client_request_duration_seconds",
			Help:      "Graph service request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	breakerOpen := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_client_breaker_open",
			Help:      "1 while the graph service circuit breaker is open",
		},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(clientRequests, clientDuration, breakerOpen, httpRequests, httpDuration)

	return &Collector{
		registry:       registry,
		ClientRequests: clientRequests,
		ClientDuration: clientDuration,
		BreakerOpen:    breakerOpen,
		HTTPRequests:   httpRequests,
		HTTPDuration:   httpDuration,
	}
}

// ObserveClientCall records one graph service call
func (c *Collector) ObserveClientCall(operation, status string, duration time.Duration) {
	c.ClientRequests.WithLabelValues(operation, status).Inc()
	c.ClientDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveHTTP records one request served by the stub backend
func (c *Collector) ObserveHTTP(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetBreakerOpen records the circuit breaker state
func (c *Collector) SetBreakerOpen(open bool) {
	if open {
		c.BreakerOpen.Set(1)
		return
	}
	c.BreakerOpen.Set(0)
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
