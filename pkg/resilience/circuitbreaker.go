// Package resilience provides the fault-tolerance primitives used around the
// history store and the reply transport: a circuit breaker, exponential
// backoff retry, and a context-based timeout wrapper.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

// ErrCircuitOpen is returned without calling through while the breaker is
// open. It matches apperrors.ErrUnavailable.
var ErrCircuitOpen = fmt.Errorf("%w: circuit breaker is open", apperrors.ErrUnavailable)

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
	FailureThreshold int
	ResetTimeout     time.Duration
	// HalfOpenProbes is how many calls may run while half-open.
	HalfOpenProbes int
	// OnStateChange, if set, is called with the new state while the breaker
	// lock is held. It must not call back into the breaker.
	OnStateChange func(name string, state State)
	// Ignore reports errors that say nothing about the dependency's health.
	// They neither trip the breaker nor reset the failure count. By default
	// context cancellation is ignored.
	Ignore func(err error) bool
	Now    func() time.Time
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenProbes calls through to decide
// whether to close again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

// NewCircuitBreaker fills in zero config values: 5 failures, 15s reset
// timeout, one probe.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 15 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.Ignore == nil {
		cfg.Ignore = func(err error) bool { return errors.Is(err, context.Canceled) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute calls fn unless the breaker is open and records the outcome.
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

// Reset closes the breaker and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.logger.Info("circuit manually reset")
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.cfg.Now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit half-open, probing")
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenProbes {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
	}
	if cb.state == StateHalfOpen {
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil:
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed, dependency recovered")
		}
		cb.transition(StateClosed)
	case cb.cfg.Ignore(err):
		if cb.state == StateHalfOpen {
			cb.probes--
		}
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		cb.logger.Warn("circuit re-opened, probe failed", "error", err)
	default:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen)
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
		}
	}
}

// transition moves to state, resetting counters. Same-state transitions only
// reset counters and do not notify.
func (cb *CircuitBreaker) transition(state State) {
	cb.failures = 0
	cb.probes = 0
	if state == StateOpen {
		cb.openedAt = cb.cfg.Now()
	}
	if cb.state == state {
		return
	}
	cb.state = state
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, state)
	}
}
