package metrics

import (
	"time"
)

// Skip reasons for EntriesSkippedTotal.
const (
	SkipBlacklisted      = "blacklisted"
	SkipDuplicateInCycle = "duplicate_in_cycle"
	SkipDuplicateStored  = "duplicate_stored"
	SkipInvalid          = "invalid"
)

// RecordCycle records the outcome of one poll cycle.
// Status should be one of "success", "noop", "interrupted" or "failed".
func RecordCycle(status string, duration time.Duration) {
	CyclesTotal.WithLabelValues(status).Inc()
	CycleDuration.Observe(duration.Seconds())
	LastCycleTimestamp.SetToCurrentTime()
}

// RecordFeedFetch records the duration and item count of one feed fetch.
func RecordFeedFetch(duration time.Duration, items int, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	FeedFetchDuration.WithLabelValues(result).Observe(duration.Seconds())
	if items > 0 {
		EntriesFetchedTotal.Add(float64(items))
	}
}

// RecordFeedFetchError records a failed fetch for feedURL.
// errorType should be a short token such as "timeout", "circuit_open" or "fetch_failed".
func RecordFeedFetchError(feedURL, errorType string) {
	FeedFetchErrors.WithLabelValues(feedURL, errorType).Inc()
}

// RecordEntriesSkipped adds count entries skipped for reason.
func RecordEntriesSkipped(reason string, count int) {
	if count <= 0 {
		return
	}
	EntriesSkippedTotal.WithLabelValues(reason).Add(float64(count))
}

// RecordEntriesAccepted adds count entries accepted for dispatch.
func RecordEntriesAccepted(count int) {
	if count > 0 {
		EntriesAcceptedTotal.Add(float64(count))
	}
}

// RecordEntriesCommitted adds count records newly written to the store.
func RecordEntriesCommitted(count int64) {
	if count > 0 {
		EntriesCommittedTotal.Add(float64(count))
	}
}

// RecordEntriesPurged adds count records removed by the blacklist.
func RecordEntriesPurged(count int64) {
	if count > 0 {
		EntriesPurgedTotal.Add(float64(count))
	}
}

// RecordBlacklistLoadFailure counts a blacklist that failed to load.
func RecordBlacklistLoadFailure() {
	BlacklistLoadFailuresTotal.Inc()
}

// RecordStoreOperation records the duration of a store call and counts it as
// an error when err is non-nil.
// Operation should name the call (e.g., "contains_all", "insert_if_absent").
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// UpdateStoreRecords sets the current number of stored records.
// This gauge is refreshed after every commit.
func UpdateStoreRecords(count int64) {
	StoreRecords.Set(float64(count))
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
