// Package scraper provides implementations for fetching RSS/Atom feeds.
// It uses the gofeed library to parse feed content behind a per-feed circuit breaker.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"feed-relay/internal/observability/logging"
	"feed-relay/internal/resilience/circuitbreaker"
	"feed-relay/internal/usecase/fetch"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// DefaultUserAgent is sent with every feed request.
const DefaultUserAgent = "FeedRelayBot/1.0"

// RSSFetcher implements fetch.FeedFetcher using the gofeed library.
// Each feed URL gets its own circuit breaker; nothing is retried.
type RSSFetcher struct {
	client    *http.Client
	breakers  *circuitbreaker.Group
	userAgent string
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
// Breakers use circuitbreaker.FeedFetchConfig.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return NewRSSFetcherWithBreakers(client, circuitbreaker.NewGroup(circuitbreaker.FeedFetchConfig()))
}

// NewRSSFetcherWithBreakers creates an RSSFetcher that shares breakers with the caller.
func NewRSSFetcherWithBreakers(client *http.Client, breakers *circuitbreaker.Group) *RSSFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &RSSFetcher{
		client:    client,
		breakers:  breakers,
		userAgent: DefaultUserAgent,
	}
}

// Breakers exposes the per-feed breakers, e.g. for health reporting.
func (f *RSSFetcher) Breakers() *circuitbreaker.Group {
	return f.breakers
}

// Fetch retrieves and parses an RSS/Atom feed from the given URL.
// An open breaker rejects the call without any network I/O.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]fetch.FeedItem, error) {
	cb := f.breakers.Get(feedURL)
	result, err := cb.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, feedURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("service", "feed-fetch"),
				slog.String("url", logging.Sanitize(feedURL)),
				slog.String("state", cb.State().String()))
		}
		return nil, err
	}
	return result.([]fetch.FeedItem), nil
}

// doFetch performs the actual feed fetch without the circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]fetch.FeedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, fmt.Errorf("%w: %w", fetch.ErrInvalidFeedFormat, err)
		}
		return nil, fmt.Errorf("%w: %w", fetch.ErrFeedFetchFailed, err)
	}

	items := make([]fetch.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		items = append(items, fetch.FeedItem{
			GUID:        it.GUID,
			Link:        it.Link,
			Title:       it.Title,
			Author:      itemAuthor(it),
			PublishedAt: it.PublishedParsed,
		})
	}

	return items, nil
}

// itemAuthor returns the first named author of it, falling back to the
// author's email. It returns "" when the item has no author at all.
func itemAuthor(it *gofeed.Item) string {
	people := it.Authors
	if len(people) == 0 && it.Author != nil {
		people = []*gofeed.Person{it.Author}
	}
	for _, p := range people {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			return name
		}
		if email := strings.TrimSpace(p.Email); email != "" {
			return email
		}
	}
	return ""
}
