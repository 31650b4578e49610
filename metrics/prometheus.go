// Package metrics exports asset cache activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/assetcache/resource"
)

// Collector counts resource lifecycle events. Register it on an engine with
// cache.WithObserver and feed it sweep results with ObserveSweep.
type Collector struct {
	registry *prometheus.Registry

	// Counters
	createdTotal *prometheus.CounterVec
	freedTotal   *prometheus.CounterVec
	drainedTotal prometheus.Counter
	sweepsTotal  prometheus.Counter

	// Gauges
	resources *prometheus.GaugeVec
	stores    prometheus.Gauge

	// Histograms
	sweepDuration prometheus.Histogram
}

// Sweep duration buckets, in seconds. A sweep should fit well inside a frame.
var sweepBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		createdTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_created_total",
				Help:      "Total number of resources added to the cache",
			},
			[]string{"type"},
		),

		freedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_freed_total",
				Help:      "Total number of resources freed by sweeps",
			},
			[]string{"type"},
		),

		drainedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refcount_changes_total",
			Help:      "Total number of reference count changes drained from mailboxes",
		}),

		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total number of sweeps",
		}),

		resources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources",
				Help:      "Live resources per type",
			},
			[]string{"type"},
		),

		stores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stores",
			Help:      "Live per-type stores",
		}),

		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in one sweep",
			Buckets:   sweepBuckets,
		}),
	}

	registry.MustRegister(
		c.createdTotal,
		c.freedTotal,
		c.drainedTotal,
		c.sweepsTotal,
		c.resources,
		c.stores,
		c.sweepDuration,
	)

	return c
}

// OnResourceEvent implements resource.Observer.
func (c *Collector) OnResourceEvent(e resource.Event) {
	typ := e.Tag.String()
	switch e.Type {
	case resource.EventCreated:
		c.createdTotal.WithLabelValues(typ).Inc()
		c.resources.WithLabelValues(typ).Inc()
	case resource.EventFreed:
		c.freedTotal.WithLabelValues(typ).Inc()
		c.resources.WithLabelValues(typ).Dec()
	case resource.EventStoreCreated:
		c.stores.Inc()
	case resource.EventStoreRemoved:
		c.stores.Dec()
		c.resources.DeleteLabelValues(typ)
	}
}

// ObserveSweep records one engine sweep.
func (c *Collector) ObserveSweep(stats resource.SweepStats, d time.Duration) {
	c.sweepsTotal.Inc()
	c.drainedTotal.Add(float64(stats.Drained))
	c.sweepDuration.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
