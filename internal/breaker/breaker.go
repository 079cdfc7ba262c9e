// Package breaker implements a consecutive-failure circuit breaker used to
// guard calls to the external scraping, AI and deployment APIs.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the current position of the breaker's state machine.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// OpenError is returned by Execute when the breaker rejects a call without
// invoking the wrapped function.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("Circuit breaker %s OPEN. Resets in %ds", e.Name, int(e.RetryAfter.Round(time.Second).Seconds()))
}

// Snapshot is a point-in-time copy of a breaker's state and counters.
type Snapshot struct {
	Name             string
	State            State
	FailureCount     int
	SuccessCount     int
	LastFailureTime  *time.Time
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Breaker guards calls to a single external dependency. Failures are counted
// consecutively since the last success; there is no time-based decay while
// closed. The breaker never retries on its own; it only decides whether a
// call may be attempted.
type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	now func() time.Time
}

// New creates a breaker in the CLOSED state.
func New(name string, failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Execute runs fn through the breaker. In the OPEN state the call fails fast
// with *OpenError until the reset timeout has elapsed; then exactly one trial
// call is let through. fn must honor ctx itself; the breaker imposes no
// per-call timeout, only a cooldown between trials.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}

	result, err := fn(ctx)
	if err != nil {
		b.onFailure()
		return nil, err
	}

	b.onSuccess()
	return result, nil
}

// allow decides whether a call may be attempted, advancing OPEN -> HALF_OPEN
// when the cooldown has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		// A trial call is already in flight. Concurrent callers keep
		// failing fast until it settles; the breaker leaves HALF_OPEN
		// only through onSuccess, onFailure or Reset.
		return &OpenError{Name: b.name, RetryAfter: b.remainingLocked()}
	case StateOpen:
		if remaining := b.remainingLocked(); remaining > 0 {
			return &OpenError{Name: b.name, RetryAfter: remaining}
		}
		// Cooldown elapsed: let exactly this one call through as a trial.
		b.state = StateHalfOpen
	}
	return nil
}

// remainingLocked returns the time left on the cooldown, never negative.
// Callers must hold b.mu.
func (b *Breaker) remainingLocked() time.Duration {
	remaining := b.resetTimeout - b.now().Sub(b.lastFailureTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.failureCount = 0
	b.state = StateClosed
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateHalfOpen:
		// One failure while testing recovery re-opens immediately; the
		// threshold is not re-checked.
		b.state = StateOpen
	case StateClosed:
		if b.failureCount >= b.failureThreshold {
			b.state = StateOpen
		}
	}
}

// State returns a snapshot of the breaker.
func (b *Breaker) State() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Name:             b.name,
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		FailureThreshold: b.failureThreshold,
		ResetTimeout:     b.resetTimeout,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		snap.LastFailureTime = &t
	}
	return snap
}

// Reset forces the breaker to CLOSED and zeroes all counters, regardless of
// current state. Used for manual operator recovery and test setup.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
}
