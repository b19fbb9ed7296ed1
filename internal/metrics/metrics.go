// Package metrics holds the Prometheus collectors for the connection engine
// and providers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexus"

// Collector holds every metric nexus exports. Each Collector owns its own
// registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Engine metrics
	FallbackTier   *prometheus.CounterVec
	EdgesPersisted prometheus.Counter
	EdgesFailed    prometheus.Counter

	// Provider metrics
	ProviderFailures *prometheus.CounterVec

	// Operation metrics
	Operations *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		FallbackTier: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_tier_total",
				Help:      "Connect runs by the policy tier that produced their proposals",
			},
			[]string{"tier"},
		),
		EdgesPersisted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_persisted_total",
				Help:      "Connections successfully upserted by the engine",
			},
		),
		EdgesFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_failed_total",
				Help:      "Connections the engine failed to persist",
			},
		),
		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_failures_total",
				Help:      "Embedding, classification and summarization failures",
			},
			[]string{"capability"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Operations executed, by name and outcome",
			},
			[]string{"op", "outcome"},
		),
	}

	registry.MustRegister(
		c.FallbackTier,
		c.EdgesPersisted,
		c.EdgesFailed,
		c.ProviderFailures,
		c.Operations,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveTier records which connect policy produced the proposals.
func (c *Collector) ObserveTier(tier string) {
	if c == nil {
		return
	}
	c.FallbackTier.WithLabelValues(tier).Inc()
}

// ObserveEdges records persisted and failed upserts from one connect run.
func (c *Collector) ObserveEdges(persisted, failed int) {
	if c == nil {
		return
	}
	c.EdgesPersisted.Add(float64(persisted))
	c.EdgesFailed.Add(float64(failed))
}

// ObserveProviderFailure counts a failed provider call.
func (c *Collector) ObserveProviderFailure(capability string) {
	if c == nil {
		return
	}
	c.ProviderFailures.WithLabelValues(capability).Inc()
}

// ObserveOperation counts an operation result.
func (c *Collector) ObserveOperation(op string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Operations.WithLabelValues(op, outcome).Inc()
}
