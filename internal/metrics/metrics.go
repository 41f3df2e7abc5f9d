// Package metrics provides Prometheus metrics for the flixctl query cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts query lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "lookups_total",
			Help:      "Total number of query cache lookups",
		},
		[]string{"result"},
	)

	// CacheCoalesced counts callers that shared an in-flight fetch.
	CacheCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "coalesced_total",
			Help:      "Total number of query results delivered from a shared in-flight fetch",
		},
	)

	// CacheInvalidations counts entries evicted by tag invalidation.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "invalidations_total",
			Help:      "Total number of cache entries evicted by tag invalidation",
		},
		[]string{"tag"},
	)

	// CacheEvictions counts entries dropped for capacity or staleness.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "evictions_total",
			Help:      "Total number of cache entries dropped by LRU pressure or TTL",
		},
	)

	// Mutations counts mutations by status.
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "mutations_total",
			Help:      "Total number of mutations",
		},
		[]string{"status"},
	)

	// FetchDuration measures upstream fetch duration.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flixctl",
			Subsystem: "querycache",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// RecordLookup records a cache hit or miss.
func RecordLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordCoalesced records a caller served from a shared fetch.
func RecordCoalesced() {
	CacheCoalesced.Inc()
}

// RecordInvalidation records entries evicted for a tag.
func RecordInvalidation(tag string, evicted int) {
	CacheInvalidations.WithLabelValues(tag).Add(float64(evicted))
}

// RecordEviction records one capacity or staleness eviction.
func RecordEviction() {
	CacheEvictions.Inc()
}

// RecordMutation records a mutation outcome.
func RecordMutation(success bool) {
	if success {
		Mutations.WithLabelValues("success").Inc()
		return
	}
	Mutations.WithLabelValues("error").Inc()
}

// RecordFetch records an upstream fetch duration.
func RecordFetch(endpoint string, seconds float64) {
	FetchDuration.WithLabelValues(endpoint).Observe(seconds)
}
