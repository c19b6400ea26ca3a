package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feed-relay/internal/domain/entity"

	"github.com/google/uuid"
)

const (
	// maxErrorBody caps how much of a failed response body is read into errors
	maxErrorBody = 512

	// PayloadTypeURL is the only payload type the relay sends.
	PayloadTypeURL = "url"
)

// WebhookConfig contains configuration for one webhook destination.
type WebhookConfig struct {
	// Name is the log-safe destination name (see DestinationName)
	Name string

	// URL is the webhook URL (may include an authentication token)
	URL string

	// Timeout is the HTTP request timeout for one POST
	Timeout time.Duration
}

// WebhookNotifier posts entries as JSON to a webhook URL.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier with the specified configuration.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Payload is the JSON body sent for one entry.
type Payload struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Folder  string   `json:"folder"`
}

// BuildPayload maps an entry onto the webhook body. The author becomes the only
// tag; an entry without an author gets an empty tag list, never [""].
func BuildPayload(entry entity.Entry) Payload {
	tags := []string{}
	if author := strings.TrimSpace(entry.Author); author != "" {
		tags = append(tags, author)
	}
	return Payload{
		Type:    PayloadTypeURL,
		Content: entry.Link,
		Title:   entry.Title,
		Tags:    tags,
		Folder:  entry.SourceFolder,
	}
}

// sendWebhookRequest sends one POST for entry.
//
// Returns the response status (0 if none) and:
//   - nil: Request succeeded (2xx status)
//   - *RateLimitError: 429
//   - *ClientError: other 4xx
//   - *ServerError: 5xx
//   - wrapped transport error: connection/timeout error
func (w *WebhookNotifier) sendWebhookRequest(ctx context.Context, requestID string, entry entity.Entry) (int, error) {
	jsonData, err := json.Marshal(BuildPayload(entry))
	if err != nil {
		return 0, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		// url.Error would echo the URL
		return 0, fmt.Errorf("create http request for %s: invalid webhook url", w.config.Name)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute http request: %w", unwrapURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, &RateLimitError{
			Message:    "webhook rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, time.Now()),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resp.StatusCode, &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook client error %d: %s", resp.StatusCode, truncate(string(body), maxErrorBody)),
		}
	case resp.StatusCode >= 500:
		return resp.StatusCode, &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook server error %d: %s", resp.StatusCode, truncate(string(body), maxErrorBody)),
		}
	default:
		return resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}

// NotifyEntry sends one webhook notification for entry.
// This method implements the Notifier interface.
func (w *WebhookNotifier) NotifyEntry(ctx context.Context, entry entity.Entry) (int, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		requestID = uuid.New().String()
	}

	status, err := w.sendWebhookRequest(ctx, requestID, entry)
	if err != nil {
		slog.Debug("webhook request failed",
			slog.String("request_id", requestID),
			slog.String("destination", w.config.Name),
			slog.Int("status", status),
			slog.Any("error", err))
		return status, err
	}

	slog.Debug("webhook request succeeded",
		slog.String("request_id", requestID),
		slog.String("destination", w.config.Name),
		slog.Int("status", status))
	return status, nil
}

// WithRequestID stores a request id that NotifyEntry sends as X-Request-ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// unwrapURLError drops the *url.Error wrapper, whose message includes the URL.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
