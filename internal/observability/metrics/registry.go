// Package metrics provides centralized Prometheus metrics for the relay worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle metrics track poll cycles as a whole
var (
	// CyclesTotal counts finished cycles by status
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cycles_total",
			Help: "Total number of poll cycles by final status",
		},
		[]string{"status"}, // status: success, noop, interrupted, failed
	)

	// CycleDuration measures the wall time of one cycle
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_cycle_duration_seconds",
			Help:    "Time taken to run one poll cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// LastCycleTimestamp records when the last cycle finished
	LastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_last_cycle_timestamp_seconds",
			Help: "Unix timestamp of the last finished cycle",
		},
	)
)

// Entry metrics track how fetched entries move through the pipeline
var (
	// FeedFetchDuration measures time to fetch one feed
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse one feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"result"}, // result: success, failure
	)

	// FeedFetchErrors counts failed feed fetches per feed
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_feed_fetch_errors_total",
			Help: "Total number of failed feed fetches",
		},
		[]string{"feed", "error_type"},
	)

	// EntriesFetchedTotal counts entries returned by feeds
	EntriesFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_entries_fetched_total",
			Help: "Total number of entries returned by feeds",
		},
	)

	// EntriesSkippedTotal counts entries that were not dispatched, by reason
	EntriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_entries_skipped_total",
			Help: "Total number of fetched entries that were not dispatched",
		},
		[]string{"reason"}, // reason: blacklisted, duplicate_in_cycle, duplicate_stored, invalid
	)

	// EntriesAcceptedTotal counts entries accepted for dispatch
	EntriesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_entries_accepted_total",
			Help: "Total number of entries accepted for dispatch",
		},
	)

	// EntriesCommittedTotal counts records newly written to the store
	EntriesCommittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_entries_committed_total",
			Help: "Total number of entry records written to the store",
		},
	)

	// BlacklistLoadFailuresTotal counts cycles that ran on the previous blacklist
	BlacklistLoadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_blacklist_load_failures_total",
			Help: "Total number of cycles whose blacklist failed to load",
		},
	)

	// EntriesPurgedTotal counts records removed because their author was blacklisted
	EntriesPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_entries_purged_total",
			Help: "Total number of stored records removed by the blacklist",
		},
	)
)

// Store metrics track the entry store
var (
	// StoreRecords tracks the number of stored records
	StoreRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_store_records",
			Help: "Number of entry records in the store",
		},
	)

	// StoreOperationDuration measures store call duration
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_store_operation_duration_seconds",
			Help:    "Entry store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// StoreErrors counts failed store calls
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_store_errors_total",
			Help: "Total number of failed entry store operations",
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
