package reasoning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the reset timeout passes.
	BreakerOpen
	// BreakerHalfOpen lets a single probe through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when the breaker rejects a call.
var ErrBreakerOpen = eris.New("reasoning: upstream circuit open")

// Breaker stops calling an upstream that keeps failing. Only outages count
// as failures; see Trips.
type Breaker struct {
	threshold int
	reset     time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	now  func() time.Time
	name string
}

// NewBreaker opens after threshold consecutive outages and probes again after
// reset. A threshold of zero or less returns nil, which disables breaking.
func NewBreaker(name string, threshold int, reset time.Duration) *Breaker {
	if threshold <= 0 {
		return nil
	}
	if reset <= 0 {
		reset = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		reset:     reset,
		now:       time.Now,
		name:      name,
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.reset {
		return BreakerHalfOpen
	}
	return b.state
}

// Allow returns ErrBreakerOpen when the call must not proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.reset {
			return ErrBreakerOpen
		}
		b.transition(BreakerHalfOpen)
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record feeds the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if neutral(err) {
		if b.state == BreakerHalfOpen {
			b.transition(BreakerOpen)
		}
		return
	}
	if !Trips(err) {
		b.failures = 0
		if b.state != BreakerClosed {
			b.transition(BreakerClosed)
		}
		return
	}

	b.failures++
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.threshold {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	zap.L().Warn("reasoning breaker state change",
		zap.String("provider", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("consecutive_failures", b.failures),
	)
}

// Trips reports whether err indicates an upstream outage. Timeouts, transport
// failures and 408/429/5xx statuses trip. Client errors and caller
// cancellation do not.
func Trips(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	if errors.Is(se.Err, ErrBreakerOpen) || errors.Is(se.Err, context.Canceled) {
		return false
	}
	return se.StatusCode == 0 || transientStatus(se.StatusCode)
}

// neutral reports whether err says nothing about upstream health.
func neutral(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, ErrBreakerOpen))
}

func transientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
