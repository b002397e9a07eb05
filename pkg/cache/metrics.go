package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (redis, memory)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "putsync_cache_hits_total",
			Help: "Total number of line cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "putsync_cache_misses_total",
			Help: "Total number of line cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "putsync_cache_errors_total",
			Help: "Total number of line cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
