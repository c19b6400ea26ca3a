package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCycle(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{name: "success", status: "success"},
		{name: "noop", status: "noop"},
		{name: "interrupted", status: "interrupted"},
		{name: "failed", status: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(CyclesTotal.WithLabelValues(tt.status))
			RecordCycle(tt.status, 2*time.Second)
			after := testutil.ToFloat64(CyclesTotal.WithLabelValues(tt.status))
			assert.Equal(t, before+1, after)
		})
	}

	assert.Greater(t, testutil.ToFloat64(LastCycleTimestamp), float64(0))
}

func TestRecordFeedFetch(t *testing.T) {
	before := testutil.ToFloat64(EntriesFetchedTotal)

	RecordFeedFetch(100*time.Millisecond, 3, true)
	RecordFeedFetch(50*time.Millisecond, 0, false)

	assert.Equal(t, before+3, testutil.ToFloat64(EntriesFetchedTotal))
}

func TestRecordFeedFetchError(t *testing.T) {
	feed := "https://example.com/feed.xml"
	before := testutil.ToFloat64(FeedFetchErrors.WithLabelValues(feed, "timeout"))

	RecordFeedFetchError(feed, "timeout")

	assert.Equal(t, before+1, testutil.ToFloat64(FeedFetchErrors.WithLabelValues(feed, "timeout")))
}

func TestRecordEntriesSkipped(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		count  int
		delta  float64
	}{
		{name: "blacklisted", reason: SkipBlacklisted, count: 2, delta: 2},
		{name: "duplicate in cycle", reason: SkipDuplicateInCycle, count: 1, delta: 1},
		{name: "duplicate stored", reason: SkipDuplicateStored, count: 5, delta: 5},
		{name: "zero is ignored", reason: SkipInvalid, count: 0, delta: 0},
		{name: "negative is ignored", reason: SkipInvalid, count: -1, delta: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(EntriesSkippedTotal.WithLabelValues(tt.reason))
			RecordEntriesSkipped(tt.reason, tt.count)
			after := testutil.ToFloat64(EntriesSkippedTotal.WithLabelValues(tt.reason))
			assert.Equal(t, before+tt.delta, after)
		})
	}
}

func TestRecordEntryCounters(t *testing.T) {
	accepted := testutil.ToFloat64(EntriesAcceptedTotal)
	committed := testutil.ToFloat64(EntriesCommittedTotal)
	purged := testutil.ToFloat64(EntriesPurgedTotal)

	RecordEntriesAccepted(4)
	RecordEntriesCommitted(3)
	RecordEntriesPurged(2)
	RecordEntriesPurged(0)

	assert.Equal(t, accepted+4, testutil.ToFloat64(EntriesAcceptedTotal))
	assert.Equal(t, committed+3, testutil.ToFloat64(EntriesCommittedTotal))
	assert.Equal(t, purged+2, testutil.ToFloat64(EntriesPurgedTotal))
}

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreErrors.WithLabelValues("contains_all"))

	RecordStoreOperation("contains_all", time.Millisecond, nil)
	assert.Equal(t, before, testutil.ToFloat64(StoreErrors.WithLabelValues("contains_all")))

	RecordStoreOperation("contains_all", time.Millisecond, errors.New("locked"))
	assert.Equal(t, before+1, testutil.ToFloat64(StoreErrors.WithLabelValues("contains_all")))
}

func TestUpdateGauges(t *testing.T) {
	UpdateStoreRecords(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(StoreRecords))

	UpdateDBConnectionStats(3, 2)
	assert.Equal(t, float64(3), testutil.ToFloat64(DBConnectionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnectionsIdle))
}

func TestRecordBlacklistLoadFailure(t *testing.T) {
	before := testutil.ToFloat64(BlacklistLoadFailuresTotal)

	RecordBlacklistLoadFailure()
	RecordBlacklistLoadFailure()

	assert.Equal(t, before+2, testutil.ToFloat64(BlacklistLoadFailuresTotal))
}
