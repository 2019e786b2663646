package source

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/logger"
	"stockdash/internal/model"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // Normal operation, requests pass through
	StateOpen     State = 1 // Circuit tripped, requests rejected immediately
	StateHalfOpen State = 2 // One probe request allowed through
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

// CircuitBreaker opens after maxFailures consecutive upstream failures and
// rejects calls for resetTimeout. It then lets one probe through while other
// callers keep getting ErrCircuitOpen: success closes it, failure reopens it.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	probing      bool // a half-open probe is in flight

	// OnStateChange is called on every transition while the lock is held.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn through the breaker. Errors for which countsAsFailure
// reports false are returned as-is and leave the breaker untouched.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	probe := cb.state == StateHalfOpen
	if probe {
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		// An ignored error leaves the breaker half-open for the next probe.
		cb.probing = false
	}

	if err != nil {
		if !countsAsFailure(err) {
			return err
		}
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the current circuit breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if from == StateHalfOpen {
		cb.probing = false
	}
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}

// countsAsFailure keeps caller mistakes and cancellations from tripping the
// breaker; only upstream trouble does.
func countsAsFailure(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownSymbol):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Guarded wraps a PriceSource with a circuit breaker.
type Guarded struct {
	src model.PriceSource
	cb  *CircuitBreaker
	log *zap.Logger
}

// Guard returns src protected by cb.
func Guard(src model.PriceSource, cb *CircuitBreaker, log *zap.Logger) *Guarded {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guarded{src: src, cb: cb, log: log.Named("breaker")}
}

// Name implements model.PriceSource.
func (g *Guarded) Name() string { return g.src.Name() }

// Breaker exposes the underlying breaker for status reporting.
func (g *Guarded) Breaker() *CircuitBreaker { return g.cb }

// FetchDaily implements model.PriceSource.
func (g *Guarded) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	var series *model.PriceSeries
	err := g.cb.Execute(func() error {
		s, err := g.src.FetchDaily(ctx, symbol, start, end)
		if err != nil {
			return err
		}
		series = s
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		g.log.Warn("upstream short-circuited",
			append(logger.Fields(ctx), zap.String("source", g.src.Name()), zap.String("symbol", symbol))...)
		return nil, errors.Wrapf(err, "%s %s", g.src.Name(), symbol)
	}
	return series, err
}
