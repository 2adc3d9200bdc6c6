package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits counts lookups that found an entry.
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_cache_hits_total",
		Help: "Total number of page cache hits",
	})

	// Misses counts lookups that found nothing.
	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_cache_misses_total",
		Help: "Total number of page cache misses",
	})

	// NotModified counts 304 responses served from a cached entry.
	NotModified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_304_responses_total",
		Help: "Total number of upstream 304 Not Modified responses",
	})

	// Revalidations counts requests sent with a validator header.
	Revalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_conditional_requests_total",
		Help: "Total number of conditional page requests",
	})

	// Errors counts failing cache operations.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_cache_errors_total",
		Help: "Total number of page cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
