// Package metrics exposes the catalog's Prometheus instruments.
//
// Metrics (namespace from config, "catalog" by default):
//   - http_requests_total{method,route,status}
//   - http_request_duration_seconds{method,route}
//   - export_sessions_total{export,outcome}
//   - export_rows_total{export}
//   - export_duration_seconds{export}
//   - exports_active
//   - cache_hits_total{tier}, cache_misses_total{tier}, cache_entries
//   - ws_clients
//
// A nil *Collector is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a registry and the instruments registered on it.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	exportSessions *prometheus.CounterVec
	exportRows     *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	exportsActive  prometheus.Gauge

	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	wsClients prometheus.Gauge
}

// NewCollector registers every instrument on a fresh registry together with
// the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "catalog"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		exportSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_sessions_total",
			Help:      "Streaming export sessions by export and outcome.",
		}, []string{"export", "outcome"}),
		exportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_total",
			Help:      "Rows written by streaming exports.",
		}, []string{"export"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Streaming export session duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
		}, []string{"export"}),
		exportsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exports_active",
			Help:      "Streaming exports currently holding a cursor.",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Response cache hits by tier.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Response cache misses by tier.",
		}, []string{"tier"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by the response cache.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket event subscribers.",
		}),
	}

	reg.MustRegister(
		c.requests, c.requestDuration,
		c.exportSessions, c.exportRows, c.exportDuration, c.exportsActive,
		c.cacheHits, c.cacheMisses, c.cacheEntries,
		c.wsClients,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// ObserveRequest records one completed HTTP request. route is the chi route
// pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ExportStarted marks a session as holding a cursor. Pair with ExportFinished.
func (c *Collector) ExportStarted() {
	if c == nil {
		return
	}
	c.exportsActive.Inc()
}

// ExportFinished records a finished export session.
func (c *Collector) ExportFinished(export, outcome string, rows int64, d time.Duration) {
	if c == nil {
		return
	}
	c.exportsActive.Dec()
	c.exportSessions.WithLabelValues(export, outcome).Inc()
	c.exportRows.WithLabelValues(export).Add(float64(rows))
	c.exportDuration.WithLabelValues(export).Observe(d.Seconds())
}

// CacheHit counts a response served from cache.
func (c *Collector) CacheHit(tier string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(tier).Inc()
}

// CacheMiss counts a cacheable response that had to be computed.
func (c *Collector) CacheMiss(tier string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(tier).Inc()
}

// SetCacheEntries reports the cache size.
func (c *Collector) SetCacheEntries(n int) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(float64(n))
}

// SetWSClients reports the websocket subscriber count.
func (c *Collector) SetWSClients(n int) {
	if c == nil {
		return
	}
	c.wsClients.Set(float64(n))
}
