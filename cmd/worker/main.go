package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	pgRepo "feed-relay/internal/infra/adapter/persistence/postgres"
	sqliteRepo "feed-relay/internal/infra/adapter/persistence/sqlite"
	"feed-relay/internal/infra/db"
	"feed-relay/internal/infra/scraper"
	workerPkg "feed-relay/internal/infra/worker"
	"feed-relay/internal/observability/logging"
	"feed-relay/internal/observability/metrics"
	"feed-relay/internal/pkg/config"
	"feed-relay/internal/repository"
	fetchUC "feed-relay/internal/usecase/fetch"
	"feed-relay/internal/usecase/notify"
	"feed-relay/internal/usecase/pipeline"
)

func main() {
	logger := initLogger()
	if err := run(logger); err != nil {
		logger.Error("worker exited", slog.String("error", logging.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	if err := workerConfig.Validate(); err != nil {
		return err
	}
	logger.Info("worker configuration loaded",
		slog.String("schedule", workerConfig.Schedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.String("feeds_file", workerConfig.FeedsFile),
		slog.String("webhooks_file", workerConfig.WebhooksFile),
		slog.Duration("dispatch_delay", workerConfig.DispatchDelay),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	// Lists are read once; a bad list stops the worker before the first cycle
	feeds, err := config.LoadFeedList(workerConfig.FeedsFile)
	if err != nil {
		return err
	}
	webhooks, err := config.LoadWebhookList(workerConfig.WebhooksFile)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	database, store, err := initStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	httpClient := createHTTPClient()

	rssFetcher := scraper.NewRSSFetcher(httpClient)
	fetchService := fetchUC.NewService(rssFetcher, fetchUC.Config{
		Timeout:       workerConfig.FetchTimeout,
		MaxConcurrent: workerConfig.FetchMaxConcurrent,
	})

	destinations := notify.NewWebhookDestinations(webhooks, workerConfig.DispatchTimeout)
	notifyService := notify.NewService(destinations, notify.Config{
		Timeout:       workerConfig.DispatchTimeout,
		MaxConcurrent: workerConfig.NotifyMaxConcurrent,
	})
	names := make([]string, 0, len(destinations))
	for _, d := range destinations {
		names = append(names, d.Name())
	}
	logger.Info("notification service initialized",
		slog.Any("destinations", names),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))

	blacklist := config.NewBlacklistLoader(workerConfig.BlacklistSource, httpClient)

	relay := pipeline.NewService(
		store,
		blacklist,
		fetchService,
		notifyService,
		pipeline.Config{Feeds: feeds, DispatchDelay: workerConfig.DispatchDelay},
		pipeline.WithTracer(tp.Tracer("feed-relay")),
	)
	logger.Info("pipeline initialized",
		slog.Int("feeds", len(feeds)),
		slog.Bool("blacklist_remote", blacklist.IsRemote()))

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, workerConfig.MetricsPort, notifyService, rssFetcher.Breakers(), database)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	job := &cycleJob{
		ctx:      ctx,
		pipeline: relay,
		timeout:  workerConfig.CycleTimeout,
		metrics:  workerMetrics,
		health:   healthServer,
	}
	return runScheduler(ctx, logger, workerConfig, job, healthServer)
}

// initLogger initializes the process logger and makes it the slog default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initStore opens the database selected by DATABASE_URL / SQLITE_PATH and
// creates the entries table if it does not exist.
func initStore(ctx context.Context, logger *slog.Logger) (*sql.DB, repository.EntryRepository, error) {
	opts := db.OptionsFromEnv()
	database, err := db.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var store repository.EntryRepository
	if opts.Dialect() == db.DialectPostgres {
		store = pgRepo.NewEntryRepo(database)
	} else {
		store = sqliteRepo.NewEntryRepo(database)
	}
	if err := store.Initialize(ctx); err != nil {
		_ = database.Close()
		return nil, nil, err
	}

	count, err := store.Count(ctx)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	metrics.UpdateStoreRecords(count)
	logger.Info("entry store ready",
		slog.String("dialect", string(opts.Dialect())),
		slog.Int64("records", count))
	return database, store, nil
}

// createHTTPClient creates an HTTP client for feeds and the remote blacklist.
// Per-request deadlines come from the caller's context. TLS 1.2+ is enforced.
func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// runScheduler runs the cycle job on the configured schedule until ctx ends,
// then waits for a running cycle to finish its commit.
func runScheduler(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig, job cron.Job, healthServer *workerPkg.HealthServer) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	cronLogger := newCronLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
	)

	// One wrapped job for every trigger so cycles never overlap
	wrapped := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).Then(job)

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	c.Schedule(schedule, wrapped)
	if cfg.RunOnStart {
		c.Schedule(&startupSchedule{}, wrapped)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.Schedule),
		slog.String("timezone", loc.String()),
		slog.Bool("run_on_start", cfg.RunOnStart))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutdown signal received, waiting for running cycle")

	<-c.Stop().Done()
	logger.Info("worker stopped")
	return nil
}

// startupSchedule fires once, as soon as the scheduler starts.
type startupSchedule struct{ fired bool }

func (s *startupSchedule) Next(t time.Time) time.Time {
	if s.fired {
		return time.Time{} // zero: never again
	}
	s.fired = true
	return t
}

// newCronLogger routes cron's own messages through slog.
// Skipped runs are only reported at debug level.
func newCronLogger(logger *slog.Logger) cron.Logger {
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		return cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	}
	return cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
}

// cycleJob runs one relay cycle per cron trigger.
type cycleJob struct {
	ctx      context.Context
	pipeline *pipeline.Service
	timeout  time.Duration
	metrics  *workerPkg.WorkerMetrics
	health   *workerPkg.HealthServer
}

// Run executes a single cycle with the cycle timeout.
// A shutdown signal does not cancel a running cycle: it finishes its
// deliveries and commit, and the scheduler waits for it. Only the cycle
// timeout interrupts dispatch.
func (j *cycleJob) Run() {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), j.timeout)
	defer cancel()

	stats, err := j.pipeline.RunCycle(ctx)

	j.metrics.RecordJobRun(stats.Status)
	j.metrics.RecordJobDuration(time.Since(startTime).Seconds())
	j.metrics.RecordEntriesDispatched(stats.Dispatched)
	if err == nil {
		j.metrics.RecordLastSuccess()
	}

	report := workerPkg.CycleReport{
		CycleID:          stats.CycleID,
		Status:           stats.Status,
		FinishedAt:       time.Now(),
		Accepted:         stats.Accepted,
		Dispatched:       stats.Dispatched,
		DeliveryFailures: stats.DeliveryFailures,
	}
	if err != nil {
		report.Error = logging.SanitizeError(err)
	}
	j.health.RecordCycle(report)
}
