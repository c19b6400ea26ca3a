package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthServer provides HTTP endpoints for health checks.
// It implements two endpoints:
//   - /health: Liveness probe (always returns 200 OK)
//   - /health/ready: Readiness probe (returns 200 if ready, 503 if not)
//
// Both responses carry the report of the last finished cycle once one exists.
//
// Example usage:
//
//	healthServer := NewHealthServer(":9091", logger)
//	go func() {
//	    if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	healthServer.SetReady(true)
type HealthServer struct {
	addr      string
	logger    *slog.Logger
	isReady   *atomic.Bool
	lastCycle atomic.Pointer[CycleReport]
	server    *http.Server
}

// CycleReport summarizes the most recent cycle for the health endpoints.
type CycleReport struct {
	CycleID          string    `json:"cycle_id"`
	Status           string    `json:"status"`
	FinishedAt       time.Time `json:"finished_at"`
	Accepted         int       `json:"accepted"`
	Dispatched       int       `json:"dispatched"`
	DeliveryFailures int       `json:"delivery_failures"`
	Error            string    `json:"error,omitempty"`
}

// healthResponse is the JSON response format for health check endpoints.
type healthResponse struct {
	Status    string       `json:"status"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}

// NewHealthServer creates a new health check server that starts as not ready.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false)

	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: isReady,
	}
}

// Handler returns the health routes without starting a listener.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	return mux
}

// Start starts the health check HTTP server.
// It blocks until ctx is cancelled or the listener fails, and shuts down
// gracefully within 5 seconds. A graceful stop returns http.ErrServerClosed.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// RecordCycle stores the report of a finished cycle.
func (h *HealthServer) RecordCycle(report CycleReport) {
	h.lastCycle.Store(&report)
}

// LastCycle returns the last recorded report, or nil before the first cycle.
func (h *HealthServer) LastCycle() *CycleReport {
	return h.lastCycle.Load()
}

// handleLiveness handles the /health endpoint (liveness probe).
func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LastCycle: h.LastCycle()})
}

// handleReadiness handles the /health/ready endpoint (readiness probe).
// The worker is ready once the store is open and the scheduler is running.
func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LastCycle: h.LastCycle()})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
