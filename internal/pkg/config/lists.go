package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/resilience/circuitbreaker"

	"gopkg.in/yaml.v3"
)

// maxBlacklistBody caps a remote blacklist download.
const maxBlacklistBody = 1 << 20

// readLines returns the trimmed, non-blank lines of r. When comments is true,
// lines starting with '#' are skipped as well.
func readLines(r io.Reader, comments bool) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || (comments && strings.HasPrefix(line, "#")) {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadFeedList reads the feed list at path.
//
// Text format, one feed per line:
//
//	https://example.com/rss.xml,news
//	https://example.com/atom.xml
//	# comment
//
// A .yaml or .yml file is read as a list of {url, folder} mappings instead.
// A missing folder is "". The list must name at least one feed.
func LoadFeedList(path string) ([]entity.FeedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &entity.ConfigError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var feeds []entity.FeedSource
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(f).Decode(&feeds); err != nil && !errors.Is(err, io.EOF) {
			return nil, &entity.ConfigError{Source: path, Err: fmt.Errorf("decode yaml: %w", err)}
		}
	default:
		lines, err := readLines(f, true)
		if err != nil {
			return nil, &entity.ConfigError{Source: path, Err: err}
		}
		for _, line := range lines {
			u, folder, _ := strings.Cut(line, ",")
			feeds = append(feeds, entity.FeedSource{URL: u, Folder: folder})
		}
	}

	out := make([]entity.FeedSource, 0, len(feeds))
	for i, feed := range feeds {
		feed.URL = strings.TrimSpace(feed.URL)
		feed.Folder = strings.TrimSpace(feed.Folder)
		if err := validateFeedURL(feed.URL); err != nil {
			return nil, &entity.ConfigError{Source: path, Err: &entity.ValidationError{
				Field:   fmt.Sprintf("feed %d", i+1),
				Message: err.Error(),
			}}
		}
		out = append(out, feed)
	}
	if len(out) == 0 {
		return nil, &entity.ConfigError{Source: path, Err: errors.New("no feeds configured")}
	}
	return out, nil
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return errors.New("empty url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	return nil
}

// LoadWebhookList reads one webhook URL per line. Every URL must pass
// ValidateWebhookURL, and an empty list is an error.
func LoadWebhookList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &entity.ConfigError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	urls, err := readLines(f, true)
	if err != nil {
		return nil, &entity.ConfigError{Source: path, Err: err}
	}
	for i, u := range urls {
		if err := ValidateWebhookURL(u); err != nil {
			return nil, &entity.ConfigError{Source: path, Err: &entity.ValidationError{
				Field:   fmt.Sprintf("line %d", i+1),
				Message: err.Error(),
			}}
		}
	}
	if len(urls) == 0 {
		return nil, &entity.ConfigError{Source: path, Err: errors.New("no webhook destinations configured")}
	}
	return urls, nil
}

// BlacklistLoader reads the blacklist from a local file or an http(s) URL.
// It is called once per cycle so edits take effect without a restart.
type BlacklistLoader struct {
	source  string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewBlacklistLoader creates a loader for source. An empty source yields an
// empty blacklist. Remote sources are fetched through a circuit breaker.
func NewBlacklistLoader(source string, client *http.Client) *BlacklistLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &BlacklistLoader{
		source:  strings.TrimSpace(source),
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.BlacklistFetchConfig()),
	}
}

// IsRemote reports whether the blacklist is fetched over HTTP.
func (l *BlacklistLoader) IsRemote() bool {
	return strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://")
}

// LoadBlacklist returns the current blacklist.
//
// A local file that does not exist is an empty blacklist. Any other failure
// is returned; the pipeline then keeps filtering with the previous blacklist.
func (l *BlacklistLoader) LoadBlacklist(ctx context.Context) (entity.Blacklist, error) {
	if l.source == "" {
		return entity.NewBlacklist(nil), nil
	}
	if l.IsRemote() {
		result, err := l.breaker.Execute(func() (interface{}, error) {
			return l.fetchRemote(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("LoadBlacklist: %w", err)
		}
		return entity.NewBlacklist(result.([]string)), nil
	}

	f, err := os.Open(l.source)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("blacklist file not found, using empty blacklist",
			slog.String("path", l.source))
		return entity.NewBlacklist(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadBlacklist: %w", err)
	}
	defer func() { _ = f.Close() }()

	names, err := readLines(f, false)
	if err != nil {
		return nil, fmt.Errorf("LoadBlacklist: read %s: %w", l.source, err)
	}
	return entity.NewBlacklist(names), nil
}

func (l *BlacklistLoader) fetchRemote(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get blacklist: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get blacklist: unexpected status %d", resp.StatusCode)
	}
	names, err := readLines(io.LimitReader(resp.Body, maxBlacklistBody), false)
	if err != nil {
		return nil, fmt.Errorf("read blacklist body: %w", err)
	}
	return names, nil
}
