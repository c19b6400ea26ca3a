// Package pipeline runs one poll cycle end to end: load the blacklist and
// purge its authors from the store, fetch every feed, filter, deduplicate
// against the cycle and the store, dispatch what is left, then commit what
// was dispatched.
//
// A cycle is the only writer of the store while it runs; cycles never overlap.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/observability/logging"
	"feed-relay/internal/observability/metrics"
	"feed-relay/internal/observability/tracing"
	"feed-relay/internal/repository"
	"feed-relay/internal/usecase/fetch"
	"feed-relay/internal/usecase/filter"
	"feed-relay/internal/usecase/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDispatchDelay is the spacing between two entry dispatches.
const DefaultDispatchDelay = 3 * time.Second

// BlacklistSource supplies the blacklist, read fresh every cycle.
type BlacklistSource interface {
	LoadBlacklist(ctx context.Context) (entity.Blacklist, error)
}

// Fetcher collects the entries of every configured feed.
type Fetcher interface {
	FetchAll(ctx context.Context, feeds []entity.FeedSource) (*fetch.Result, error)
}

// Dispatcher delivers one entry to every destination.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry entity.Entry) []notify.Outcome
}

// Config holds the pipeline settings.
type Config struct {
	Feeds         []entity.FeedSource
	DispatchDelay time.Duration
}

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	CycleID          string
	Status           string // success, noop, interrupted or failed
	Feeds            int
	FeedErrors       int
	Fetched          int
	Blacklisted      int
	BlacklistStale   bool // the blacklist failed to load and the previous one was used
	DuplicateInCycle int
	DuplicateStored  int
	Accepted         int
	Dispatched       int
	DeliveryFailures int // destination-level failures
	Committed        int64
	Purged           int64
	Duration         time.Duration
}

// Service runs poll cycles.
type Service struct {
	store      repository.EntryRepository
	blacklist  BlacklistSource
	fetcher    Fetcher
	dispatcher Dispatcher
	feeds      []entity.FeedSource
	pacer      *Pacer
	tracer     trace.Tracer
	now        func() time.Time

	mu            sync.Mutex
	lastBlacklist entity.Blacklist
}

// Option configures a Service.
type Option func(*Service)

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock sets the clock used for StoredRecord.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a pipeline.
func NewService(
	store repository.EntryRepository,
	blacklist BlacklistSource,
	fetcher Fetcher,
	dispatcher Dispatcher,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		blacklist:  blacklist,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		feeds:      cfg.Feeds,
		pacer:      NewPacer(cfg.DispatchDelay),
		tracer:     tracing.GetTracer(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle runs one poll cycle.
//
// A blacklist that fails to load does not abort the cycle: the last one
// loaded successfully is used (empty before the first success) and the purge
// is skipped.
//
// Returned errors:
//   - *entity.StoreError: a store call failed; if it was the commit, the
//     dispatched entries will be dispatched again next cycle
//   - ErrCycleInterrupted: ctx ended; entries already dispatched are committed
//
// The stats are returned even when err is non-nil.
func (s *Service) RunCycle(ctx context.Context) (stats *CycleStats, err error) {
	start := time.Now()
	stats = &CycleStats{CycleID: uuid.New().String(), Feeds: len(s.feeds)}

	ctx = logging.WithCycleID(ctx, stats.CycleID)
	logger := logging.WithCycle(ctx, slog.Default())
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartStage(ctx, s.tracer, "cycle",
		attribute.String("cycle_id", stats.CycleID),
		attribute.Int("feeds", len(s.feeds)))

	noop := false
	defer func() {
		stats.Duration = time.Since(start)
		stats.Status = cycleStatus(err, noop)
		tracing.EndStage(span, err)
		metrics.RecordCycle(stats.Status, stats.Duration)
		logCycle(logger, stats, err)
	}()

	// 1. Load
	bl, err := s.load(ctx, stats)
	if err != nil {
		return stats, err
	}

	// 2. Fetch
	entries, err := s.fetch(ctx, stats)
	if err != nil {
		return stats, err
	}
	if len(entries) == 0 {
		noop = true
		return stats, nil
	}

	// 3. Filter
	_, fspan := tracing.StartStage(ctx, s.tracer, "filter", attribute.Int("entries", len(entries)))
	allowed, denied := filter.Apply(entries, bl)
	stats.Blacklisted = denied
	metrics.RecordEntriesSkipped(metrics.SkipBlacklisted, denied)
	tracing.EndStage(fspan, nil)

	// 4. Dedup
	accepted, err := s.dedup(ctx, allowed, stats)
	if err != nil {
		return stats, err
	}
	if len(accepted) == 0 {
		noop = true
		return stats, nil
	}

	// 5. Dispatch
	attempted, interruptErr := s.dispatch(ctx, accepted, stats)

	// 6. Commit
	commitErr := s.commit(ctx, attempted, stats)

	switch {
	case interruptErr != nil && commitErr != nil:
		return stats, errors.Join(fmt.Errorf("%w: %w", ErrCycleInterrupted, interruptErr), commitErr)
	case interruptErr != nil:
		return stats, fmt.Errorf("%w: %w", ErrCycleInterrupted, interruptErr)
	default:
		return stats, commitErr
	}
}

// load reads the blacklist and purges its authors from the store.
func (s *Service) load(ctx context.Context, stats *CycleStats) (bl entity.Blacklist, err error) {
	ctx, span := tracing.StartStage(ctx, s.tracer, "load")
	defer func() { tracing.EndStage(span, err) }()

	bl, loadErr := s.blacklist.LoadBlacklist(ctx)
	if loadErr != nil {
		bl = s.previousBlacklist()
		stats.BlacklistStale = true
		metrics.RecordBlacklistLoadFailure()
		span.SetAttributes(attribute.Bool("blacklist_stale", true), attribute.Int("blacklist_size", bl.Len()))
		logging.FromContext(ctx).Warn("blacklist unavailable, using previous blacklist",
			slog.Int("authors", bl.Len()),
			slog.String("error", logging.SanitizeError(loadErr)))
		return bl, nil
	}
	s.rememberBlacklist(bl)
	span.SetAttributes(attribute.Int("blacklist_size", bl.Len()))

	authors := repository.RemovableAuthors(bl.Authors())
	if len(authors) == 0 {
		return bl, nil
	}

	opStart := time.Now()
	purged, err := s.store.RemoveByAuthor(ctx, authors)
	metrics.RecordStoreOperation("remove_by_author", time.Since(opStart), err)
	if err != nil {
		return nil, &entity.StoreError{Op: "RemoveByAuthor", Err: err}
	}
	stats.Purged = purged
	metrics.RecordEntriesPurged(purged)
	if purged > 0 {
		logging.FromContext(ctx).Info("purged blacklisted authors from store",
			slog.Int64("purged", purged),
			slog.Int("authors", len(authors)))
	}
	return bl, nil
}

func (s *Service) previousBlacklist() entity.Blacklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBlacklist
}

func (s *Service) rememberBlacklist(bl entity.Blacklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBlacklist = bl
}

// fetch collects entries from every feed.
func (s *Service) fetch(ctx context.Context, stats *CycleStats) (entries []entity.Entry, err error) {
	ctx, span := tracing.StartStage(ctx, s.tracer, "fetch")
	defer func() { tracing.EndStage(span, err) }()

	res, err := s.fetcher.FetchAll(ctx, s.feeds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCycleInterrupted, err)
	}
	stats.FeedErrors = res.Stats.FeedErrors
	stats.Fetched = len(res.Entries)
	span.SetAttributes(
		attribute.Int("entries", stats.Fetched),
		attribute.Int("feed_errors", stats.FeedErrors))
	return res.Entries, nil
}

// dedup drops repeats within the cycle, first occurrence wins, then drops
// ids the store already holds. Order is preserved.
func (s *Service) dedup(ctx context.Context, entries []entity.Entry, stats *CycleStats) (accepted []entity.Entry, err error) {
	ctx, span := tracing.StartStage(ctx, s.tracer, "dedup", attribute.Int("entries", len(entries)))
	defer func() { tracing.EndStage(span, err) }()

	seen := make(map[string]struct{}, len(entries))
	unique := make([]entity.Entry, 0, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			stats.DuplicateInCycle++
			continue
		}
		seen[e.ID] = struct{}{}
		unique = append(unique, e)
		ids = append(ids, e.ID)
	}
	metrics.RecordEntriesSkipped(metrics.SkipDuplicateInCycle, stats.DuplicateInCycle)

	if len(ids) == 0 {
		return nil, nil
	}

	opStart := time.Now()
	stored, err := s.store.ContainsAll(ctx, ids)
	metrics.RecordStoreOperation("contains_all", time.Since(opStart), err)
	if err != nil {
		return nil, &entity.StoreError{Op: "ContainsAll", Err: err}
	}

	accepted = make([]entity.Entry, 0, len(unique))
	for _, e := range unique {
		if stored[e.ID] {
			stats.DuplicateStored++
			continue
		}
		accepted = append(accepted, e)
	}
	stats.Accepted = len(accepted)
	metrics.RecordEntriesSkipped(metrics.SkipDuplicateStored, stats.DuplicateStored)
	metrics.RecordEntriesAccepted(stats.Accepted)
	span.SetAttributes(attribute.Int("accepted", stats.Accepted))
	return accepted, nil
}

// dispatch delivers accepted entries in order, paced. It stops when ctx ends
// and returns the entries whose dispatch was attempted together with the
// context error, if any.
func (s *Service) dispatch(ctx context.Context, accepted []entity.Entry, stats *CycleStats) (attempted []entity.Entry, interruptErr error) {
	ctx, span := tracing.StartStage(ctx, s.tracer, "dispatch", attribute.Int("entries", len(accepted)))
	defer func() { tracing.EndStage(span, interruptErr) }()

	attempted = make([]entity.Entry, 0, len(accepted))
	for _, e := range accepted {
		if err := s.pacer.Wait(ctx); err != nil {
			interruptErr = err
			break
		}
		for _, o := range s.dispatcher.Dispatch(ctx, e) {
			if !o.OK() {
				stats.DeliveryFailures++
			}
		}
		attempted = append(attempted, e)
	}
	stats.Dispatched = len(attempted)
	span.SetAttributes(
		attribute.Int("dispatched", stats.Dispatched),
		attribute.Int("delivery_failures", stats.DeliveryFailures))
	return attempted, interruptErr
}

// commit records every attempted entry. It runs even after ctx has ended so
// that what was dispatched is never dispatched again.
func (s *Service) commit(ctx context.Context, attempted []entity.Entry, stats *CycleStats) (err error) {
	if len(attempted) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.StartStage(ctx, s.tracer, "commit", attribute.Int("entries", len(attempted)))
	defer func() { tracing.EndStage(span, err) }()

	now := s.now()
	records := make([]*entity.StoredRecord, 0, len(attempted))
	for _, e := range attempted {
		records = append(records, entity.NewStoredRecord(e, now))
	}

	opStart := time.Now()
	inserted, err := s.store.InsertIfAbsent(ctx, records)
	metrics.RecordStoreOperation("insert_if_absent", time.Since(opStart), err)
	if err != nil {
		return &entity.StoreError{Op: "InsertIfAbsent", Err: err}
	}
	stats.Committed = inserted
	metrics.RecordEntriesCommitted(inserted)

	if total, cerr := s.store.Count(ctx); cerr == nil {
		metrics.UpdateStoreRecords(total)
	} else {
		logging.FromContext(ctx).Warn("failed to count stored records", slog.Any("error", cerr))
	}
	return nil
}

func cycleStatus(err error, noop bool) string {
	switch {
	case errors.Is(err, ErrCycleInterrupted):
		return "interrupted"
	case err != nil:
		return "failed"
	case noop:
		return "noop"
	default:
		return "success"
	}
}

func logCycle(logger *slog.Logger, stats *CycleStats, err error) {
	attrs := []any{
		slog.Int("feeds", stats.Feeds),
		slog.Int("feed_errors", stats.FeedErrors),
		slog.Int("fetched", stats.Fetched),
		slog.Int("blacklisted", stats.Blacklisted),
		slog.Bool("blacklist_stale", stats.BlacklistStale),
		slog.Int("duplicate_in_cycle", stats.DuplicateInCycle),
		slog.Int("duplicate_stored", stats.DuplicateStored),
		slog.Int("accepted", stats.Accepted),
		slog.Int("dispatched", stats.Dispatched),
		slog.Int("delivery_failures", stats.DeliveryFailures),
		slog.Int64("committed", stats.Committed),
		slog.Int64("purged", stats.Purged),
		slog.Duration("duration", stats.Duration),
	}
	if err != nil {
		logger.Error("cycle failed", append(attrs, slog.String("error", logging.SanitizeError(err)))...)
		return
	}
	logger.Info("cycle completed", attrs...)
}
