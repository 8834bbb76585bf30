package utils

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the breaker's current disposition toward upstream calls
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

var (
	// ErrCircuitOpen rejects calls while the upstream is considered down
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects calls beyond the single half-open probe
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// halfOpenProbes is how many calls a half-open breaker admits before
// rejecting the rest until the probe resolves.
const halfOpenProbes = 1

// CircuitBreaker guards calls to one upstream dependency. It opens after
// maxFailures consecutive failures, rejects calls outright while open, and
// after resetTimeout admits a single probe call that either closes the
// breaker again or reopens it.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	probes      int
}

// BreakerStatus is a point-in-time snapshot for health reporting
type BreakerStatus struct {
	State    CircuitState `json:"state"`
	Failures int          `json:"failures"`
}

// NewCircuitBreaker builds a closed breaker with the given failure
// threshold and open-state timeout
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Call runs fn under the breaker. A breaker error means fn never ran.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

// admit decides whether a call may proceed, moving an expired open breaker
// into half-open on the way
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) <= cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= halfOpenProbes {
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

// record folds the call outcome back into the breaker state
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			// A failed probe restarts the full open window
			cb.state = StateOpen
			cb.failures = cb.maxFailures
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		cb.probes = 0
	case StateClosed:
		cb.failures = 0
	}
}

// GetState returns the breaker's current state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status snapshots the breaker for health endpoints
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStatus{State: cb.state, Failures: cb.failures}
}

// Reset forces the breaker closed, clearing all failure bookkeeping
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
}
