package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/infra/notifier"
	"feed-relay/internal/observability/logging"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single destination call.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxConcurrent bounds concurrent destination calls.
	DefaultMaxConcurrent = 10
)

// Config holds dispatcher settings.
type Config struct {
	// Timeout is applied to each destination call separately
	Timeout time.Duration

	// MaxConcurrent is the worker pool size shared by all destinations
	MaxConcurrent int
}

// Service dispatches entries to every configured destination.
type Service interface {
	// Dispatch delivers entry to all destinations concurrently and waits for
	// every one of them. Outcomes are returned in destination order.
	//
	// Failures are logged and reported in the outcomes, never returned as an error.
	Dispatch(ctx context.Context, entry entity.Entry) []Outcome

	// DestinationHealth returns the delivery health of every destination.
	DestinationHealth() []DestinationHealthStatus
}

// Outcome is the result of delivering one entry to one destination.
type Outcome struct {
	Destination string
	StatusCode  int
	Duration    time.Duration
	// Err is an *entity.DispatchError on failure
	Err error
}

// OK reports whether the delivery succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// DestinationHealthStatus represents the delivery health of a destination.
type DestinationHealthStatus struct {
	Name                string     `json:"name"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// Healthy reports whether the most recent delivery succeeded.
func (h DestinationHealthStatus) Healthy() bool { return h.ConsecutiveFailures == 0 }

// service is the concrete implementation of Service interface.
type service struct {
	destinations []Destination
	timeout      time.Duration
	workerPool   chan struct{}          // Semaphore for limiting concurrent sends
	health       map[string]*destHealth // Delivery state per destination
}

// destHealth tracks delivery state for a destination
type destHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	lastSuccess         time.Time
	lastFailure         time.Time
	lastError           string
}

// NewService creates a new dispatcher for the given destinations.
// Zero config values fall back to DefaultTimeout and DefaultMaxConcurrent.
func NewService(destinations []Destination, cfg Config) Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}

	svc := &service{
		destinations: destinations,
		timeout:      cfg.Timeout,
		workerPool:   make(chan struct{}, cfg.MaxConcurrent),
		health:       make(map[string]*destHealth, len(destinations)),
	}
	for _, d := range destinations {
		svc.health[d.Name()] = &destHealth{}
	}
	SetDestinationsConfigured(float64(len(destinations)))

	return svc
}

// Dispatch implements Service.Dispatch.
func (s *service) Dispatch(ctx context.Context, entry entity.Entry) []Outcome {
	requestID := uuid.New().String()
	ctx = notifier.WithRequestID(ctx, requestID)

	outcomes := make([]Outcome, len(s.destinations))
	var wg sync.WaitGroup
	for i, d := range s.destinations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.send(ctx, requestID, d, entry)
		}()
	}
	wg.Wait()

	return outcomes
}

// send delivers entry to a single destination.
func (s *service) send(ctx context.Context, requestID string, d Destination, entry entity.Entry) (out Outcome) {
	out.Destination = d.Name()
	logger := logging.FromContext(ctx)

	// Acquire worker slot
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-ctx.Done():
		out.Err = &entity.DispatchError{Destination: d.Name(), Err: fmt.Errorf("%w: %w", ErrNoWorkerSlot, ctx.Err())}
		s.finish(logger, requestID, entry, &out)
		return out
	}

	IncrementActiveSends()
	defer DecrementActiveSends()

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	RecordDispatch(d.Name())
	start := time.Now()
	status, err := s.safeSend(sendCtx, logger, requestID, d, entry)
	out.Duration = time.Since(start)
	out.StatusCode = status

	if err != nil {
		out.Err = &entity.DispatchError{Destination: d.Name(), StatusCode: status, Err: err}
	}
	s.finish(logger, requestID, entry, &out)
	return out
}

// safeSend calls d.Send and turns a panic into ErrDestinationPanic.
func (s *service) safeSend(ctx context.Context, logger *slog.Logger, requestID string, d Destination, entry entity.Entry) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in destination",
				slog.String("request_id", requestID),
				slog.String("destination", d.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			status, err = 0, fmt.Errorf("%w: %v", ErrDestinationPanic, r)
		}
	}()
	return d.Send(ctx, entry)
}

// finish updates health, records metrics and logs the outcome.
func (s *service) finish(logger *slog.Logger, requestID string, entry entity.Entry, out *Outcome) {
	h := s.health[out.Destination]
	now := time.Now()

	h.mu.Lock()
	if out.Err != nil {
		h.consecutiveFailures++
		h.lastFailure = now
		h.lastError = out.Err.Error()
	} else {
		h.consecutiveFailures = 0
		h.lastSuccess = now
	}
	h.mu.Unlock()

	if out.Err != nil {
		var rateLimitErr *notifier.RateLimitError
		if errors.As(out.Err, &rateLimitErr) {
			RecordRateLimitHit(out.Destination)
		}
		RecordFailure(out.Destination, out.Duration)
		logger.Warn("dispatch failed",
			slog.String("request_id", requestID),
			slog.String("destination", out.Destination),
			slog.String("title", entry.Title),
			slog.Int("status", out.StatusCode),
			slog.Duration("send_duration", out.Duration),
			slog.Any("error", out.Err))
		return
	}

	RecordSuccess(out.Destination, out.Duration)
	logger.Info("dispatched entry",
		slog.String("request_id", requestID),
		slog.String("destination", out.Destination),
		slog.String("title", entry.Title),
		slog.Int("status", out.StatusCode),
		slog.Duration("send_duration", out.Duration))
}

// DestinationHealth implements Service.DestinationHealth.
func (s *service) DestinationHealth() []DestinationHealthStatus {
	statuses := make([]DestinationHealthStatus, 0, len(s.destinations))

	for _, d := range s.destinations {
		h := s.health[d.Name()]

		h.mu.Lock()
		status := DestinationHealthStatus{
			Name:                d.Name(),
			ConsecutiveFailures: h.consecutiveFailures,
			LastError:           h.lastError,
		}
		if !h.lastSuccess.IsZero() {
			t := h.lastSuccess
			status.LastSuccess = &t
		}
		if !h.lastFailure.IsZero() {
			t := h.lastFailure
			status.LastFailure = &t
		}
		h.mu.Unlock()

		statuses = append(statuses, status)
	}

	return statuses
}
