package circuitbreaker

import "time"

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// Enabled determines whether the circuit breaker is active.
	// When false, New returns nil and Execute passes through directly.
	Enabled bool

	// MaxRequests is the number of probes let through while half-open.
	// Zero allows a single probe.
	MaxRequests uint

	// Interval clears the failure counts while closed. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	// Zero defaults to 60 seconds.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State)

	// IsSuccessful classifies an error returned by the wrapped call. Errors
	// it accepts do not count as failures. Nil counts every error.
	IsSuccessful func(err error) bool
}
