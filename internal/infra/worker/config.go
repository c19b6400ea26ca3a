package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feed-relay/internal/pkg/config"
)

// WorkerConfig holds the configuration for the relay worker.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default and a valid range, so the worker can run even
// when an optional setting is missing or malformed.
type WorkerConfig struct {
	// Schedule is the poll schedule: a descriptor such as "@every 5m" or a
	// 5-field cron expression.
	// Default: "@every 5m"
	Schedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// FeedsFile lists the feeds, as "url,folder" lines or YAML.
	// Default: "feeds.txt"
	FeedsFile string

	// BlacklistSource is a local file or an http(s) URL, read every cycle.
	// Empty means no blacklist.
	// Default: "blacklist.txt"
	BlacklistSource string

	// WebhooksFile lists one destination URL per line.
	// Default: "webhooks.txt"
	WebhooksFile string

	// FetchTimeout bounds a single feed fetch.
	// Range: 1s-5m, Default: 30s
	FetchTimeout time.Duration

	// FetchMaxConcurrent is the number of feeds fetched at once.
	// Range: 1-32, Default: 4
	FetchMaxConcurrent int

	// DispatchTimeout bounds a single destination call.
	// Range: 1s-2m, Default: 15s
	DispatchTimeout time.Duration

	// DispatchDelay spaces out consecutive entries. Zero disables pacing.
	// Range: 0-1m, Default: 3s
	DispatchDelay time.Duration

	// NotifyMaxConcurrent bounds concurrent destination calls.
	// Range: 1-50, Default: 10
	NotifyMaxConcurrent int

	// CycleTimeout bounds a whole poll cycle.
	// Range: 1m-4h, Default: 30m
	CycleTimeout time.Duration

	// RunOnStart runs one cycle immediately instead of waiting for the first tick.
	// Default: true
	RunOnStart bool

	// HealthPort is the port of the health check server.
	// Range: 1024-65535, Default: 9091
	HealthPort int

	// MetricsPort is the port of the metrics server.
	// Range: 1024-65535, Default: 9090
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Schedule:            "@every 5m",
		Timezone:            "UTC",
		FeedsFile:           "feeds.txt",
		BlacklistSource:     "blacklist.txt",
		WebhooksFile:        "webhooks.txt",
		FetchTimeout:        30 * time.Second,
		FetchMaxConcurrent:  4,
		DispatchTimeout:     15 * time.Second,
		DispatchDelay:       3 * time.Second,
		NotifyMaxConcurrent: 10,
		CycleTimeout:        30 * time.Minute,
		RunOnStart:          true,
		HealthPort:          9091,
		MetricsPort:         9090,
	}
}

// Validate checks every field and returns all problems joined together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.FeedsFile == "" {
		errs = append(errs, errors.New("feeds file: cannot be empty"))
	}
	if c.WebhooksFile == "" {
		errs = append(errs, errors.New("webhooks file: cannot be empty"))
	}
	if err := validateFetchTimeout(c.FetchTimeout); err != nil {
		errs = append(errs, fmt.Errorf("fetch timeout: %w", err))
	}
	if err := validateFetchMaxConcurrent(c.FetchMaxConcurrent); err != nil {
		errs = append(errs, fmt.Errorf("fetch max concurrent: %w", err))
	}
	if err := validateDispatchTimeout(c.DispatchTimeout); err != nil {
		errs = append(errs, fmt.Errorf("dispatch timeout: %w", err))
	}
	if err := validateDispatchDelay(c.DispatchDelay); err != nil {
		errs = append(errs, fmt.Errorf("dispatch delay: %w", err))
	}
	if err := validateNotifyMaxConcurrent(c.NotifyMaxConcurrent); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := validateCycleTimeout(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := validatePort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := validatePort(c.MetricsPort); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func validateFetchTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, 5*time.Minute)
}

func validateFetchMaxConcurrent(v int) error { return config.ValidateIntRange(v, 1, 32) }

func validateDispatchTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, 2*time.Minute)
}

func validateDispatchDelay(d time.Duration) error {
	return config.ValidateDuration(d, 0, time.Minute)
}

func validateNotifyMaxConcurrent(v int) error { return config.ValidateIntRange(v, 1, 50) }

func validateCycleTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Minute, 4*time.Hour)
}

func validatePort(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

// LoadConfigFromEnv loads the worker configuration from environment variables.
//
// It never fails: a rejected value falls back to its default, is logged as a
// warning and counted in the worker_config_* metrics.
//
// Environment variables:
//   - POLL_SCHEDULE, WORKER_TIMEZONE
//   - FEEDS_FILE, BLACKLIST_SOURCE, WEBHOOKS_FILE
//   - FETCH_TIMEOUT, FETCH_MAX_CONCURRENT
//   - DISPATCH_TIMEOUT, DISPATCH_DELAY, NOTIFY_MAX_CONCURRENT
//   - CYCLE_TIMEOUT, RUN_ON_START
//   - WORKER_HEALTH_PORT, METRICS_PORT
//
// BLACKLIST_SOURCE set to an empty value disables the blacklist.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	l := &fieldLoader{logger: logger, metrics: metrics}

	cfg.Schedule = apply(l, "Schedule", "poll_schedule",
		config.LoadEnvWithFallback("POLL_SCHEDULE", cfg.Schedule, config.ValidateCronSchedule))
	cfg.Timezone = apply(l, "Timezone", "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))

	cfg.FeedsFile = config.LoadEnvString("FEEDS_FILE", cfg.FeedsFile)
	cfg.BlacklistSource = config.LookupEnvString("BLACKLIST_SOURCE", cfg.BlacklistSource)
	cfg.WebhooksFile = config.LoadEnvString("WEBHOOKS_FILE", cfg.WebhooksFile)

	cfg.FetchTimeout = apply(l, "FetchTimeout", "fetch_timeout",
		config.LoadEnvDuration("FETCH_TIMEOUT", cfg.FetchTimeout, validateFetchTimeout))
	cfg.FetchMaxConcurrent = apply(l, "FetchMaxConcurrent", "fetch_max_concurrent",
		config.LoadEnvInt("FETCH_MAX_CONCURRENT", cfg.FetchMaxConcurrent, validateFetchMaxConcurrent))
	cfg.DispatchTimeout = apply(l, "DispatchTimeout", "dispatch_timeout",
		config.LoadEnvDuration("DISPATCH_TIMEOUT", cfg.DispatchTimeout, validateDispatchTimeout))
	cfg.DispatchDelay = apply(l, "DispatchDelay", "dispatch_delay",
		config.LoadEnvDuration("DISPATCH_DELAY", cfg.DispatchDelay, validateDispatchDelay))
	cfg.NotifyMaxConcurrent = apply(l, "NotifyMaxConcurrent", "notify_max_concurrent",
		config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, validateNotifyMaxConcurrent))
	cfg.CycleTimeout = apply(l, "CycleTimeout", "cycle_timeout",
		config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, validateCycleTimeout))
	cfg.RunOnStart = apply(l, "RunOnStart", "run_on_start",
		config.LoadEnvBool("RUN_ON_START", cfg.RunOnStart))
	cfg.HealthPort = apply(l, "HealthPort", "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validatePort))
	cfg.MetricsPort = apply(l, "MetricsPort", "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, validatePort))

	metrics.SetFallbackActive(l.fallbackApplied)
	metrics.RecordLoadTimestamp()

	// fail-open: always a usable configuration
	return &cfg, nil
}

// fieldLoader reports fallbacks while loading the configuration.
type fieldLoader struct {
	logger          *slog.Logger
	metrics         *WorkerMetrics
	fallbackApplied bool
}

func apply[T any](l *fieldLoader, field, metricField string, result config.ConfigLoadResult[T]) T {
	if result.FallbackApplied {
		l.fallbackApplied = true
		l.metrics.RecordValidationError(metricField)
		l.metrics.RecordFallback(metricField)
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}
