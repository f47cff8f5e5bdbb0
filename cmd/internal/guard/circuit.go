package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents breaker state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected without being attempted
// and no fallback was supplied.
var ErrCircuitOpen = errors.New("guard: circuit open")

const (
	defaultFailureThreshold = 5
	defaultCooldown         = time.Minute
	defaultHalfOpenAfter    = 30 * time.Second
)

// BreakerOptions configures a Breaker.
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int

	// HalfOpenAfter is how long an open circuit rejects calls before the next
	// caller is admitted as a recovery probe.
	HalfOpenAfter time.Duration

	// Cooldown is how long after opening the failure history is considered
	// stale: a probe admitted past the cooldown starts from a clean counter
	// instead of re-opening on its first failure.
	Cooldown time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time

	// OnStateChange is invoked after every state transition. It runs under the
	// breaker lock and must not call back into the breaker.
	OnStateChange func(from, to CircuitState)
}

// Breaker wraps an unreliable outbound call with closed/open/half-open states
// so that a failing dependency is not hammered while it recovers.
//
// The open-to-half-open transition is evaluated lazily on each attempt; there
// is no background timer, so an idle breaker holds no resources and cannot
// keep a process alive. While half-open, at most one probe call is in flight;
// every other caller short-circuits to its fallback or ErrCircuitOpen.
type Breaker struct {
	mu         sync.Mutex
	state      CircuitState
	failures   int
	lastOpened time.Time
	probing    bool

	opts BreakerOptions
}

// NewBreaker constructs a Breaker with defaults for unset options.
func NewBreaker(opts BreakerOptions) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.HalfOpenAfter <= 0 {
		opts.HalfOpenAfter = defaultHalfOpenAfter
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Breaker{state: CircuitClosed, opts: opts}
}

// State reports the effective state at the breaker's current clock, applying
// the lazy open-to-half-open transition if it is due.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.opts.Now().Sub(b.lastOpened) >= b.opts.HalfOpenAfter {
		return CircuitHalfOpen
	}
	return b.state
}

// Failures returns the consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Exec runs fn through breaker b. When the breaker rejects the call, or fn
// fails, fallback serves the result if supplied; otherwise the rejection
// (ErrCircuitOpen) or fn's error propagates.
func Exec[T any](b *Breaker, ctx context.Context, fn func(context.Context) (T, error), fallback func(context.Context) (T, error)) (T, error) {
	allowed, probe := b.acquire()
	if !allowed {
		if fallback != nil {
			return fallback(ctx)
		}
		var zero T
		return zero, ErrCircuitOpen
	}

	v, err := fn(ctx)
	if err != nil {
		b.onFailure(probe)
		if fallback != nil {
			return fallback(ctx)
		}
		var zero T
		return zero, err
	}

	b.onSuccess(probe)
	return v, nil
}

// acquire decides whether a call may proceed. probe is true when the caller
// holds the single half-open trial slot.
func (b *Breaker) acquire() (allowed, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true, false
	case CircuitOpen:
		elapsed := b.opts.Now().Sub(b.lastOpened)
		if elapsed < b.opts.HalfOpenAfter {
			return false, false
		}
		// Setting half-open here is idempotent with a concurrent attempt that
		// raced past the same check.
		b.setState(CircuitHalfOpen)
		if elapsed >= b.opts.Cooldown {
			b.failures = 0
		}
		b.probing = true
		return true, true
	case CircuitHalfOpen:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	default:
		return true, false
	}
}

func (b *Breaker) onSuccess(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	b.failures = 0
	if b.state == CircuitHalfOpen {
		b.setState(CircuitClosed)
	}
}

func (b *Breaker) onFailure(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	b.failures++
	if b.failures >= b.opts.FailureThreshold {
		b.lastOpened = b.opts.Now()
		b.setState(CircuitOpen)
	}
}

// setState transitions and fires the hook. Caller holds b.mu.
func (b *Breaker) setState(to CircuitState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.opts.OnStateChange != nil {
		b.opts.OnStateChange(from, to)
	}
}
