package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by class (static, search, autocomplete)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etg_cache_hits_total",
			Help: "Total number of ETG cache hits",
		},
		[]string{"class"},
	)

	// CacheMisses tracks cache misses by class, including lazy-expired reads
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etg_cache_misses_total",
			Help: "Total number of ETG cache misses",
		},
		[]string{"class"},
	)

	// CacheExpired tracks reads that found an entry past its expiry
	CacheExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etg_cache_expired_reads_total",
			Help: "Total number of reads that hit a lazily expired entry",
		},
		[]string{"class"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etg_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)
)
