// Package resilience guards outbound calls against a failing dependency.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows all requests through.
	StateClosed State = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen allows trial requests to test recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a dependency after repeated failures and lets
// trial calls through once the cool-down has elapsed. Permanent domain errors
// (bad input, missing permission) do not count as failures.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	timeout      time.Duration
	halfOpenSucc int // successes needed in half-open to close
	now          func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	lastFailTime  time.Time
	successCount  int
	onStateChange func(name string, from, to State)
}

// NewCircuitBreaker creates a breaker that opens after maxFailures consecutive
// failures and stays open for timeout.
func NewCircuitBreaker(name string, maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		timeout:      timeout,
		halfOpenSucc: 2,
		now:          time.Now,
		state:        StateClosed,
	}
}

// OnStateChange registers a callback invoked on every transition.
// The callback runs with the breaker unlocked.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return nil
	}
	if cb.now().Sub(cb.lastFailTime) <= cb.timeout {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	notify := cb.transition(StateHalfOpen)
	cb.successCount = 0
	cb.mu.Unlock()

	notify()
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	notify := func() {}

	switch {
	case err != nil && countsAsFailure(err):
		cb.failures++
		cb.lastFailTime = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			notify = cb.transition(StateOpen)
		}

	case cb.state == StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenSucc {
			cb.failures = 0
			notify = cb.transition(StateClosed)
		}

	default:
		cb.failures = 0
	}
	cb.mu.Unlock()

	notify()
}

// transition must be called with mu held. The returned func fires the callback.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	fn := cb.onStateChange
	name := cb.name
	return func() {
		if fn != nil {
			fn(name, from, to)
		}
	}
}

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !domainerrors.IsPermanentError(err)
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
