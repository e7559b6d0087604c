package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis, memory)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses, expired entries included
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"layer"},
	)

	// CacheWrites tracks entries written to the backing store
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_cache_writes_total",
			Help: "Total number of response cache writes",
		},
		[]string{"layer"},
	)

	// CacheEntryBytes tracks the encoded size of written entries
	CacheEntryBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recsys_cache_entry_bytes",
			Help:    "Size of encoded response cache entries in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 7),
		},
		[]string{"layer"},
	)

	// AdmissionRejections tracks responses refused by the admission predicate
	AdmissionRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recsys_cache_admission_rejections_total",
			Help: "Total number of responses rejected by the cache admission predicate",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_cache_errors_total",
			Help: "Total number of response cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
