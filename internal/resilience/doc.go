// Package resilience provides fault tolerance patterns for the relay worker.
//
// The circuitbreaker subpackage wraps github.com/sony/gobreaker. Feeds get one
// breaker each through circuitbreaker.Group, so a feed that keeps failing is
// skipped for a while and reported as a fetch error without affecting the others.
//
// Usage Example:
//
//	feeds := circuitbreaker.NewGroup(circuitbreaker.FeedFetchConfig())
//	result, err := feeds.Get(feedURL).Execute(func() (interface{}, error) {
//	    return fetchFeed(ctx, feedURL)
//	})
//
// Nothing here retries: a failed call is retried by the next poll cycle.
package resilience
