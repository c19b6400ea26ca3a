package notify

import (
	"context"
	"strings"
	"time"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/infra/notifier"
)

// WebhookDestination implements the Destination interface for a JSON webhook.
// It wraps notifier.WebhookNotifier from the infrastructure layer.
type WebhookDestination struct {
	name     string
	notifier notifier.Notifier
}

// NewWebhookDestination creates a destination for one webhook.
func NewWebhookDestination(config notifier.WebhookConfig) *WebhookDestination {
	return &WebhookDestination{
		name:     config.Name,
		notifier: notifier.NewWebhookNotifier(config),
	}
}

// NewWebhookDestinations builds one destination per URL, named host#n in
// configuration order starting at 1.
func NewWebhookDestinations(urls []string, timeout time.Duration) []Destination {
	dests := make([]Destination, 0, len(urls))
	for i, u := range urls {
		dests = append(dests, NewWebhookDestination(notifier.WebhookConfig{
			Name:    notifier.DestinationName(u, i+1),
			URL:     u,
			Timeout: timeout,
		}))
	}
	return dests
}

// Name returns the log-safe destination name.
func (d *WebhookDestination) Name() string {
	return d.name
}

// Send validates entry and delegates to the underlying notifier.
//
// Returns:
//   - ErrInvalidEntry: If the entry has no link
//   - Other errors: transport errors and the typed notifier errors
func (d *WebhookDestination) Send(ctx context.Context, entry entity.Entry) (int, error) {
	if strings.TrimSpace(entry.Link) == "" {
		return 0, ErrInvalidEntry
	}
	return d.notifier.NotifyEntry(ctx, entry)
}
