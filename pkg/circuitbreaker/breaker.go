package circuitbreaker

import (
	"errors"

	"github.com/sony/gobreaker/v2"
)

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half-open"
	StateOpen     State = "open"
)

// CircuitBreaker stops calling a failing dependency until it had time to recover.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker, or nil when cfg is disabled.
func New[T any](cfg Config) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.MaxRequests),
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, toState(from), toState(to))
		}
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}

func (c *CircuitBreaker[T]) State() State {
	return toState(c.cb.State())
}

// Execute runs fn through cb, or directly when cb is nil. Rejected calls
// return ErrCircuitOpen or ErrTooManyRequests without running fn.
func Execute[T any](cb *CircuitBreaker[T], fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}

	result, err := cb.cb.Execute(fn)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		var zero T

		return zero, ErrCircuitOpen

	case errors.Is(err, gobreaker.ErrTooManyRequests):
		var zero T

		return zero, ErrTooManyRequests
	}

	return result, err
}

// IsRejection reports whether err came from the breaker rather than the call.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

func toState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
