// Package breaker implements the per-module circuit breaker: a failure
// suppressor that stops dispatching a module for a cooldown window after
// repeated failures, then probes it once before fully re-closing.
package breaker

import (
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

const (
	DefaultThreshold     = 3
	DefaultResetTimeout  = 5 * time.Second
)

// Breaker guards one module. Its mutable state (failure count, state,
// since-timestamp) is confined behind a mutex — one of the few pieces of
// shared mutable state in the runtime outside of the live world and the
// lock-free pools.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	since     time.Time
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func New(threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if timeout <= 0 {
		timeout = DefaultResetTimeout
	}
	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// CanRun reports whether the module may be dispatched this frame. A
// breaker in Open transitions itself to HalfOpen and returns true once
// its cooldown has elapsed.
func (b *Breaker) CanRun() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if b.now().Sub(b.since) > b.timeout {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess resets a Closed breaker's failure count to zero, or fully
// closes a HalfOpen breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Closed
		b.failures = 0
	case Closed:
		b.failures = 0
	}
}

// RecordFailure increments the failure count (Closed) or immediately
// re-opens the breaker (HalfOpen), trips to Open once the threshold is
// reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Open
		b.since = b.now()
	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = Open
			b.since = b.now()
		}
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
