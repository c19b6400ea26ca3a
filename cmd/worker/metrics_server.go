package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"feed-relay/internal/observability/logging"
	"feed-relay/internal/observability/metrics"
	"feed-relay/internal/observability/tracing"
	"feed-relay/internal/usecase/notify"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// DestinationHealthResponse represents the delivery health of all webhook destinations.
type DestinationHealthResponse struct {
	Healthy      bool                             `json:"healthy"`
	Destinations []notify.DestinationHealthStatus `json:"destinations"`
}

// FeedHealthResponse lists the feeds whose circuit breaker is open.
type FeedHealthResponse struct {
	Healthy   bool     `json:"healthy"`
	OpenFeeds []string `json:"open_feeds"`
}

// destinationHealthReporter is the part of notify.Service the endpoint needs.
type destinationHealthReporter interface {
	DestinationHealth() []notify.DestinationHealthStatus
}

// feedBreakerReporter is satisfied by circuitbreaker.Group.
type feedBreakerReporter interface {
	OpenKeys() []string
}

// startMetricsServer starts the Prometheus metrics HTTP server on port.
// It runs in a separate goroutine and shuts down within 5 seconds once ctx ends.
//
// The server exposes the following endpoints:
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /health - Simple liveness probe (always returns 200 OK)
//   - GET /health/destinations - Per-destination delivery health
//   - GET /health/feeds - Feeds skipped because their circuit breaker is open
func startMetricsServer(ctx context.Context, logger *slog.Logger, port int, reporter destinationHealthReporter, feeds feedBreakerReporter, database *sql.DB) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      tracing.Middleware(newMetricsMux(reporter, feeds, database)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("metrics server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}

// newMetricsMux builds the routes of the metrics server.
// A nil database skips the connection pool gauges.
func newMetricsMux(reporter destinationHealthReporter, feeds feedBreakerReporter, database *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", dbStatsHandler(database, promhttp.Handler()))
	mux.HandleFunc("/health", healthHandler)
	if reporter != nil {
		mux.HandleFunc("/health/destinations", destinationHealthHandler(reporter))
	} else {
		mux.HandleFunc("/health/destinations", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "notification service not initialized",
			})
		})
	}
	if feeds != nil {
		mux.HandleFunc("/health/feeds", feedHealthHandler(feeds))
	}
	return mux
}

// dbStatsHandler refreshes the connection pool gauges before each scrape.
func dbStatsHandler(database *sql.DB, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if database != nil {
			stats := database.Stats()
			metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)
		}
		next.ServeHTTP(w, r)
	})
}

// healthHandler handles GET /health requests (liveness probe).
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// destinationHealthHandler handles GET /health/destinations.
// Returns 503 when the last delivery to any destination failed.
func destinationHealthHandler(reporter destinationHealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := reporter.DestinationHealth()

		healthy := true
		for _, s := range statuses {
			if !s.Healthy() {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, DestinationHealthResponse{
			Healthy:      healthy,
			Destinations: statuses,
		})
	}
}

// feedHealthHandler handles GET /health/feeds.
// Returns 503 while any feed breaker is open.
func feedHealthHandler(feeds feedBreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open := make([]string, 0)
		for _, u := range feeds.OpenKeys() {
			open = append(open, logging.Sanitize(u))
		}

		statusCode := http.StatusOK
		if len(open) > 0 {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, FeedHealthResponse{Healthy: len(open) == 0, OpenFeeds: open})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
