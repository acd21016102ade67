// Package metrics exposes Prometheus collectors for the cache and upstream feeds.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metric collectors. A nil *Metrics is valid and
// turns every recording method into a no-op, so tests and the stdio transport
// can run without a registry.
type Metrics struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge

	upstreamRequests *prometheus.CounterVec

	kpIndex prometheus.Gauge
}

// New registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurora_cache_hits_total",
			Help: "Cache hits by key",
		}, []string{"key"}),
		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurora_cache_misses_total",
			Help: "Cache misses by key",
		}, []string{"key"}),
		cacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aurora_cache_entries",
			Help: "Current number of cache entries",
		}),
		upstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurora_upstream_requests_total",
			Help: "Outbound upstream requests by upstream and outcome",
		}, []string{"upstream", "outcome"}),
		kpIndex: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aurora_kp_index",
			Help: "Most recently fetched planetary Kp index",
		}),
	}
}

func (m *Metrics) CacheHit(key string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(key).Inc()
}

func (m *Metrics) CacheMiss(key string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(key).Inc()
}

func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}

func (m *Metrics) ObserveUpstream(upstream, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(upstream, outcome).Inc()
}

func (m *Metrics) SetKpIndex(v float64) {
	if m == nil {
		return
	}
	m.kpIndex.Set(v)
}
