// Package circuitbreaker fails fast against backends on a failure
// streak, such as a media host refusing every probe, instead of paying
// the full timeout on each attempt.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls outright.
var ErrOpen = errors.New("circuit breaker open")

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

type Config struct {
	FailureThreshold    int           // consecutive failures before the breaker opens
	SuccessThreshold    int           // successes in half-open before it closes again
	Timeout             time.Duration // how long open lasts before a probe is let through
	MaxRequestsHalfOpen int           // admission cap while half-open
}

// DefaultConfig trips after five straight failures and re-probes the
// backend half a minute later.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 3,
	}
}

type CircuitBreaker struct {
	config Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	admitted    int // calls let through while half-open
	lastFailure time.Time
	changedAt   time.Time

	onStateChange func(from, to State)
}

func New(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config:    config,
		state:     StateClosed,
		changedAt: time.Now(),
	}
}

// OnStateChange registers a callback invoked on every transition. The
// callback runs on its own goroutine so it cannot deadlock the breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn if the breaker admits the call and feeds the outcome
// back into the state machine.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := cb.ExecuteWithResult(ctx, func() (any, error) {
		return nil, fn()
	})
	return err
}

// ExecuteWithResult is Execute for calls that produce a value.
func (cb *CircuitBreaker) ExecuteWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	if !cb.admit() {
		return nil, fmt.Errorf("%w, call rejected", ErrOpen)
	}

	result, err := fn()
	if err != nil {
		cb.recordFailure()
		return nil, fmt.Errorf("circuit breaker execution failed: %w", err)
	}

	cb.recordSuccess()
	return result, nil
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.changedAt) < cb.config.Timeout {
			return false
		}
		// Cool-down elapsed, let a probe through.
		cb.transition(StateHalfOpen)
		cb.admitted++
		return true
	case StateHalfOpen:
		if cb.admitted >= cb.config.MaxRequestsHalfOpen {
			return false
		}
		cb.admitted++
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0
	cb.lastFailure = time.Now()

	switch {
	case cb.state == StateHalfOpen:
		// The probe failed, the backend is still down.
		cb.transition(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.config.FailureThreshold:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++
	cb.failures = 0

	if cb.state == StateHalfOpen && cb.successes >= cb.config.SuccessThreshold {
		cb.transition(StateClosed)
	}
}

// transition assumes cb.mu is held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.changedAt = time.Now()
	cb.failures = 0
	cb.successes = 0
	if to != StateHalfOpen {
		cb.admitted = 0
	}

	if cb.onStateChange != nil {
		go cb.onStateChange(from, to)
	}
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats is a snapshot of the breaker's counters.
type Stats struct {
	State            State
	FailureCount     int
	SuccessCount     int
	HalfOpenRequests int
	LastFailureTime  time.Time
	StateChangeTime  time.Time
}

func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		State:            cb.state,
		FailureCount:     cb.failures,
		SuccessCount:     cb.successes,
		HalfOpenRequests: cb.admitted,
		LastFailureTime:  cb.lastFailure,
		StateChangeTime:  cb.changedAt,
	}
}

// Reset forces the breaker closed, discarding its failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}
