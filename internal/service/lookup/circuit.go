package lookup

import (
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
	defaultRecoveryTimeout  = 30 * time.Second
)

// breaker is a minimal circuit breaker shared by the provider clients.
// Closed until failureThreshold consecutive-window failures, then open
// for recoveryTimeout, then half-open until successThreshold successes
// close it again. Any failure while half-open reopens it.
type breaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
}

func newBreaker() *breaker {
	return &breaker{
		state:            CircuitClosed,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		recoveryTimeout:  defaultRecoveryTimeout,
	}
}

// Allow reports whether a request may proceed, transitioning from open
// to half-open once the recovery timeout has elapsed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if time.Since(b.lastFailureTime) < b.recoveryTimeout {
			return false
		}
		b.state = CircuitHalfOpen
		b.successCount = 0
	}
	return true
}

func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	if b.state == CircuitHalfOpen && b.successCount >= b.successThreshold {
		b.state = CircuitClosed
		b.failureCount = 0
	}
	if b.state == CircuitClosed {
		b.failureCount = 0
	}
}

func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	if b.state == CircuitClosed && b.failureCount >= b.failureThreshold {
		b.state = CircuitOpen
	}
	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
	}
}

func (b *breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset returns the breaker to closed with cleared counters.
func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = CircuitClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
}
