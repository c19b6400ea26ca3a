package fetch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/observability/logging"
	"feed-relay/internal/observability/metrics"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when Config leaves a field at zero.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 4
)

// FeedFetcher is an interface for fetching RSS/Atom feeds from a URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]FeedItem, error)
}

// FeedItem represents a single item from an RSS/Atom feed, before normalization.
type FeedItem struct {
	GUID        string
	Link        string
	Title       string
	Author      string
	PublishedAt *time.Time
}

// Config holds the concurrency and timeout settings for FetchAll.
type Config struct {
	Timeout       time.Duration // per feed
	MaxConcurrent int           // feeds fetched at once
}

// Service fetches every configured feed and turns the items into entries.
type Service struct {
	fetcher FeedFetcher
	cfg     Config
}

// NewService creates a new fetch Service.
// Zero values in cfg are replaced by DefaultTimeout and DefaultMaxConcurrent.
func NewService(fetcher FeedFetcher, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Service{fetcher: fetcher, cfg: cfg}
}

// Stats contains statistics about one FetchAll call.
type Stats struct {
	Feeds      int
	FeedErrors int
	Items      int // items returned by the feeds
	Dropped    int // items without guid or link
	Duration   time.Duration
}

// Result is the merged output of FetchAll.
type Result struct {
	Entries []entity.Entry
	Errors  []*entity.FetchError
	Stats   Stats
}

// FetchAll fetches every feed concurrently and merges the entries in feed order,
// then in-feed order. Each entry is tagged with its feed's folder.
//
// A feed that fails or times out contributes zero entries and is reported in
// Result.Errors; it never fails the call. The only error returned is the
// parent context's, when it ends before the fetches complete.
func (s *Service) FetchAll(ctx context.Context, feeds []entity.FeedSource) (*Result, error) {
	logger := logging.WithCycle(ctx, slog.Default())
	start := time.Now()

	perFeed := make([][]entity.Entry, len(feeds))
	errs := make([]*entity.FetchError, len(feeds))
	dropped := make([]int, len(feeds))
	items := make([]int, len(feeds))

	eg := new(errgroup.Group)
	eg.SetLimit(s.cfg.MaxConcurrent)

	for i, feed := range feeds {
		eg.Go(func() error {
			entries, n, drop, err := s.fetchOne(ctx, feed)
			if err != nil {
				errs[i] = err
				return nil
			}
			perFeed[i] = entries
			items[i] = n
			dropped[i] = drop
			return nil
		})
	}
	// goroutines never return an error
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FetchAll: %w", err)
	}

	res := &Result{Stats: Stats{Feeds: len(feeds)}}
	for i := range feeds {
		if errs[i] != nil {
			res.Errors = append(res.Errors, errs[i])
			res.Stats.FeedErrors++
			logger.Warn("failed to fetch feed",
				slog.String("feed_url", logging.Sanitize(feeds[i].URL)),
				slog.String("folder", feeds[i].Folder),
				slog.String("error", logging.SanitizeError(errs[i].Err)))
			continue
		}
		res.Entries = append(res.Entries, perFeed[i]...)
		res.Stats.Items += items[i]
		res.Stats.Dropped += dropped[i]
	}
	res.Stats.Duration = time.Since(start)

	metrics.RecordEntriesSkipped(metrics.SkipInvalid, res.Stats.Dropped)
	logger.Info("feeds fetched",
		slog.Int("feeds", res.Stats.Feeds),
		slog.Int("feed_errors", res.Stats.FeedErrors),
		slog.Int("items", res.Stats.Items),
		slog.Int("entries", len(res.Entries)),
		slog.Int("dropped", res.Stats.Dropped),
		slog.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

// fetchOne fetches a single feed under the per-feed timeout and normalizes its items.
func (s *Service) fetchOne(ctx context.Context, feed entity.FeedSource) ([]entity.Entry, int, int, *entity.FetchError) {
	feedCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	feedItems, err := s.fetcher.Fetch(feedCtx, feed.URL)
	duration := time.Since(start)
	if err != nil {
		// parent cancellation is reported once by FetchAll
		if ctx.Err() == nil && errors.Is(feedCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrFeedTimeout, s.cfg.Timeout, err)
		}
		metrics.RecordFeedFetch(duration, 0, false)
		metrics.RecordFeedFetchError(logging.Sanitize(feed.URL), errorType(err))
		return nil, 0, 0, &entity.FetchError{FeedURL: feed.URL, Err: err}
	}

	entries := make([]entity.Entry, 0, len(feedItems))
	dropped := 0
	for _, item := range feedItems {
		e, ok := normalize(item, feed.Folder)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	metrics.RecordFeedFetch(duration, len(feedItems), true)
	return entries, len(feedItems), dropped, nil
}

// normalize turns a feed item into an Entry. The id is the guid, falling back
// to the link; an item with neither is rejected. Author is trimmed once here.
func normalize(item FeedItem, folder string) (entity.Entry, bool) {
	guid := strings.TrimSpace(item.GUID)
	link := strings.TrimSpace(item.Link)
	id := cmp.Or(guid, link)
	if id == "" {
		return entity.Entry{}, false
	}
	return entity.Entry{
		ID:           id,
		Author:       strings.TrimSpace(item.Author),
		Link:         link,
		Title:        strings.TrimSpace(item.Title),
		SourceFolder: folder,
		PublishedAt:  item.PublishedAt,
	}, true
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrFeedTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, ErrInvalidFeedFormat):
		return "invalid_format"
	default:
		return "fetch_failed"
	}
}
