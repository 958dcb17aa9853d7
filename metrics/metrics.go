// Package metrics exposes Prometheus collectors for fetches, poll cycles and discovery runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arednch/nodemon/data"
)

// Collector holds the node monitor's metrics on its own registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	fetches         *prometheus.CounterVec
	pollCycles      *prometheus.CounterVec
	reachable       *prometheus.GaugeVec
	subEntities     *prometheus.GaugeVec
	discoveryRuns   *prometheus.CounterVec
	discoveryResult prometheus.Histogram
}

// New creates a collector and registers all metrics on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodemon_fetch_total",
				Help: "Status endpoint fetches by result (ok or failure kind)",
			},
			[]string{"result"},
		),
		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodemon_poll_cycles_total",
				Help: "Completed poll cycles by node and result",
			},
			[]string{"address", "result"},
		),
		reachable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodemon_node_reachable",
				Help: "Reachability of a configured node (1=reachable, 0=unreachable)",
			},
			[]string{"address"},
		),
		subEntities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodemon_sub_entities",
				Help: "Number of tracked sub-entities per node and kind",
			},
			[]string{"address", "kind"},
		),
		discoveryRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodemon_discovery_runs_total",
				Help: "Discovery runs by outcome (completed, cancelled, empty)",
			},
			[]string{"outcome"},
		),
		discoveryResult: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nodemon_discovery_candidates",
				Help:    "Number of candidates returned by a discovery run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
			},
		),
	}

	c.registry.MustRegister(
		c.fetches,
		c.pollCycles,
		c.reachable,
		c.subEntities,
		c.discoveryRuns,
		c.discoveryResult,
	)
	return c
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordFetch counts one fetch; result is "ok" or a failure kind.
func (c *Collector) RecordFetch(result string) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(result).Inc()
}

// RecordPollCycle counts one poll cycle and updates the reachability gauge.
func (c *Collector) RecordPollCycle(address string, ok bool) {
	if c == nil {
		return
	}
	result := "failure"
	reachable := 0.0
	if ok {
		result = "success"
		reachable = 1
	}
	c.pollCycles.WithLabelValues(address, result).Inc()
	c.reachable.WithLabelValues(address).Set(reachable)
}

// SetSubEntities records how many links and interfaces a node currently has.
func (c *Collector) SetSubEntities(address string, keys []data.SubEntityKey) {
	if c == nil {
		return
	}
	counts := map[data.SubEntityKind]int{data.SubEntityLink: 0, data.SubEntityInterface: 0}
	for _, k := range keys {
		counts[k.Kind]++
	}
	for kind, n := range counts {
		c.subEntities.WithLabelValues(address, string(kind)).Set(float64(n))
	}
}

// ForgetNode drops all series for a node that is no longer polled.
func (c *Collector) ForgetNode(address string) {
	if c == nil {
		return
	}
	labels := prometheus.Labels{"address": address}
	c.pollCycles.DeletePartialMatch(labels)
	c.reachable.DeletePartialMatch(labels)
	c.subEntities.DeletePartialMatch(labels)
}

// RecordDiscovery counts a finished discovery run.
func (c *Collector) RecordDiscovery(candidates int, cancelled bool) {
	if c == nil {
		return
	}
	outcome := "completed"
	switch {
	case cancelled:
		outcome = "cancelled"
	case candidates == 0:
		outcome = "empty"
	}
	c.discoveryRuns.WithLabelValues(outcome).Inc()
	c.discoveryResult.Observe(float64(candidates))
}
