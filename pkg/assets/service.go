// Package assets loads ship models asynchronously. Loads run through a
// circuit breaker with retry, and their results queue up until the frame
// loop drains them, so a handle is only ever attached on the frame
// goroutine.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
)

// ErrClosed is returned by Request after Close.
var ErrClosed = errors.New("asset service closed")

// Request asks for the model of one ship.
type Request struct {
	ID    entity.ID
	Model string
}

// Loader is the model loading collaborator. Load builds the renderable for
// req and returns its handle.
type Loader interface {
	Load(ctx context.Context, req Request) (entity.Handle, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, req Request) (entity.Handle, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, req Request) (entity.Handle, error) {
	return f(ctx, req)
}

// Completion is the result of one Request. Handle is nil when Err is set.
type Completion struct {
	ID     entity.ID
	Handle entity.Handle
	Err    error
}

// Operation is a single attempt guarded by the breaker.
type Operation func(ctx context.Context) error

// Service runs model loads in the background.
type Service struct {
	loader  Loader
	cfg     config.AssetsConfig
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	queue   []Completion
	pending map[entity.ID]bool
	closed  bool
}

// New creates a Service whose breaker is configured from cfg.
func New(loader Loader, cfg config.AssetsConfig, logger *logging.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "assets")

	settings := gobreaker.Settings{
		Name:        "skirmish-assets",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from,
				"to", to,
			)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		loader:  loader,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[entity.ID]bool),
	}
}

// Request starts loading req in the background. A request for an ID that
// is still loading is ignored.
func (s *Service) Request(ctx context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pending[req.ID] {
		s.logger.Debug(ctx, "model already loading", "ship_id", req.ID)
		return nil
	}
	s.pending[req.ID] = true
	s.wg.Add(1)

	go s.load(logging.WithCorrelationID(s.ctx, logging.GetCorrelationID(ctx)), req)
	return nil
}

func (s *Service) load(ctx context.Context, req Request) {
	defer s.wg.Done()

	var handle entity.Handle
	err := s.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		h, err := s.loader.Load(ctx, req)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("loader returned no handle for %s", req.ID)
		}
		handle = h
		return nil
	})
	if err != nil {
		s.metrics.LoadFailed()
		s.logger.Error(ctx, "model load failed", err, "ship_id", req.ID, "model", req.Model)
		handle = nil
	}

	s.mu.Lock()
	delete(s.pending, req.ID)
	s.queue = append(s.queue, Completion{ID: req.ID, Handle: handle, Err: err})
	s.mu.Unlock()
}

// Execute runs one attempt through the circuit breaker. Each attempt is
// bounded by the configured load timeout.
func (s *Service) Execute(ctx context.Context, op Operation) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		attemptCtx := ctx
		if s.cfg.LoadTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
			defer cancel()
		}
		return nil, op(attemptCtx)
	})
	if err != nil {
		s.logger.LogWithContext(ctx, slog.LevelDebug, "circuit breaker execution failed",
			"error", err,
			"state", s.breaker.State(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs op until it succeeds, the breaker opens, ctx is
// cancelled or MaxRetries attempts have failed. The delay between attempts
// grows linearly.
func (s *Service) ExecuteWithRetry(ctx context.Context, op Operation) error {
	maxRetries := s.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.Execute(ctx, op)
		if err == nil {
			return nil
		}

		if s.breaker.State() == gobreaker.StateOpen {
			s.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", maxRetries,
			)
			return err
		}

		if attempt == maxRetries-1 {
			return fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, err)
		}

		delay := time.Duration(attempt+1) * s.cfg.RetryDelay
		s.logger.Warn(ctx, "load failed, retrying",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("unexpected exit from retry loop")
}

// Drain hands every completion that arrived since the last call to fn, in
// arrival order, and returns how many there were. It never blocks on a load.
func (s *Service) Drain(fn func(Completion)) int {
	s.mu.Lock()
	done := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, c := range done {
		fn(c)
	}
	return len(done)
}

// Pending returns the number of loads still in flight.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// State returns the breaker state.
func (s *Service) State() gobreaker.State {
	return s.breaker.State()
}

// Counts returns the breaker counters.
func (s *Service) Counts() gobreaker.Counts {
	return s.breaker.Counts()
}

// Close cancels in-flight loads, waits for them and releases every handle
// that was never drained. It is safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	released := s.Drain(func(c Completion) {
		if c.Handle != nil {
			c.Handle.Release()
		}
	})
	s.logger.Info(context.Background(), "asset service closed", "undrained", released)
}
