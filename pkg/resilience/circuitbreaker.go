// Package resilience wraps calls to the catalog database with a circuit
// breaker, jittered exponential retry and a per-call deadline. Policy
// combines the three in the order a store needs them.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

// ErrCircuitOpen is returned without calling the protected function while
// the breaker is open. It unwraps to apperrors.ErrStorageUnavailable.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", apperrors.ErrStorageUnavailable)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides which errors count against the breaker. By default
	// caller mistakes (not found, invalid input, cancellation) do not.
	IsFailure func(error) bool
	// OnStateChange is called with the lock released after every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout and then lets HalfOpenMaxRequests probes through.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsTransient
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// IsTransient reports whether err looks like an infrastructure failure
// rather than a caller mistake.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, apperrors.ErrBookNotFound),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrBookExists),
		errors.Is(err, apperrors.ErrIdempotencyConflict):
		return false
	default:
		return true
	}
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	var changed func()
	defer func() {
		cb.mu.Unlock()
		if changed != nil {
			changed()
		}
	}()

	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%s: %w (retry in %v)", cb.name, ErrCircuitOpen, wait.Round(time.Millisecond))
		}
		changed = cb.transition(StateHalfOpen)
		cb.halfOpenInFlight = 1
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%s: %w (probe in progress)", cb.name, ErrCircuitOpen)
		}
		cb.halfOpenInFlight++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	var changed func()
	defer func() {
		cb.mu.Unlock()
		if changed != nil {
			changed()
		}
	}()

	if !cb.cfg.IsFailure(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			changed = cb.transition(StateClosed)
		}
		return
	}
	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openedAt = cb.now()
			changed = cb.transition(StateOpen)
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
		}
	case StateHalfOpen:
		cb.openedAt = cb.now()
		changed = cb.transition(StateOpen)
		cb.logger.Warn("probe failed, circuit re-opened", "error", err)
	}
}

// transition must be called with mu held. It returns the notification to run
// after the lock is released.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	cb.state = to
	cb.halfOpenInFlight = 0
	cb.logger.Info("circuit state changed", "from", from, "to", to)
	if cb.cfg.OnStateChange == nil {
		return nil
	}
	return func() { cb.cfg.OnStateChange(cb.name, from, to) }
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.transition(StateClosed)
	cb.failures = 0
	cb.mu.Unlock()
	if changed != nil {
		changed()
	}
}
