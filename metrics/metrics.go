// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for the dashboard.
type Registry struct {
	// Cache performance metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Projection metrics
	ProjectionDuration *prometheus.HistogramVec

	// Dataset metrics
	Reloads     *prometheus.CounterVec
	DatasetRows prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_cache_hits_total",
				Help: "Total number of cache hits by cache and tier",
			},
			[]string{"cache", "tier"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_cache_misses_total",
				Help: "Total number of cache misses by cache",
			},
			[]string{"cache"},
		),
		ProjectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokedex_projection_duration_seconds",
				Help:    "Time spent computing an embedding",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_dataset_reloads_total",
				Help: "Dataset reloads by result",
			},
			[]string{"result"},
		),
		DatasetRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pokedex_dataset_rows",
				Help: "Number of creatures in the loaded dataset",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_http_requests_total",
				Help: "HTTP requests by route pattern and status code",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokedex_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		r.CacheHits,
		r.CacheMisses,
		r.ProjectionDuration,
		r.Reloads,
		r.DatasetRows,
		r.HTTPRequests,
		r.HTTPDuration,
	)
	return r
}

// CacheHit implements cache.Recorder.
func (r *Registry) CacheHit(cache, tier string) {
	r.CacheHits.WithLabelValues(cache, tier).Inc()
}

// CacheMiss implements cache.Recorder.
func (r *Registry) CacheMiss(cache string) {
	r.CacheMisses.WithLabelValues(cache).Inc()
}

// ObserveProjection records how long one embedding took.
func (r *Registry) ObserveProjection(method string, elapsed time.Duration) {
	r.ProjectionDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordReload counts a reload attempt and, on success, the new row count.
func (r *Registry) RecordReload(err error, rows int) {
	if err != nil {
		r.Reloads.WithLabelValues("error").Inc()
		return
	}
	r.Reloads.WithLabelValues("ok").Inc()
	r.DatasetRows.Set(float64(rows))
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route string, code int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
