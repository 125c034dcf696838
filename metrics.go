package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors the cache hit/miss/byte counters bboehmke-gitmproxy
// registers for its own disk cache (mCacheRequestsTotal/HitTotal/...),
// extended with the GC and eviction counters this cache's richer
// lifecycle needs. Each Cache instance gets its own metrics struct so
// multiple caches in one process (e.g. in tests) don't collide on
// registration; labels identify the cache by root directory.
type metrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	stores      prometheus.Counter
	refusals    prometheus.Counter
	evictions   prometheus.Counter
	gcRuns      prometheus.Counter
	currentSize prometheus.Gauge
}

func newMetrics(root string) *metrics {
	labels := prometheus.Labels{"cache_root": root}
	return &metrics{
		hits: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_hits_total",
			Help:        "Number of get_cached_response* calls that found an entry.",
			ConstLabels: labels,
		}),
		misses: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_misses_total",
			Help:        "Number of get_cached_response* calls that found no entry.",
			ConstLabels: labels,
		}),
		stores: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_stores_total",
			Help:        "Number of responses successfully cached by cache_response.",
			ConstLabels: labels,
		}),
		refusals: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_refusals_total",
			Help:        "Number of cache_response calls that declined to cache a response.",
			ConstLabels: labels,
		}),
		evictions: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_evictions_total",
			Help:        "Number of entries removed by garbage collection.",
			ConstLabels: labels,
		}),
		gcRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "httpcache_gc_runs_total",
			Help:        "Number of garbage collection passes performed.",
			ConstLabels: labels,
		}),
		currentSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "httpcache_current_size_bytes",
			Help:        "Sum of cached entry body sizes currently on disk.",
			ConstLabels: labels,
		}),
	}
}
