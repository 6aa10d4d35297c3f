package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("keydb unavailable")

func keydbConfig(name string) Config {
	return Config{
		Name:             name,
		Enabled:          true,
		MaxRequests:      1,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 2,
	}
}

func fail() (int64, error)    { return 0, errUnavailable }
func succeed() (int64, error) { return 7, nil }

func TestNew(t *testing.T) {
	t.Parallel()

	require.Nil(t, New[int64](Config{Name: "disabled"}))

	cb := New[int64](keydbConfig("ratelimit"))
	require.NotNil(t, cb)
	require.Equal(t, "ratelimit", cb.Name())
	require.Equal(t, StateClosed, cb.State())
}

func TestExecute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		cb        *CircuitBreaker[int64]
		fn        func() (int64, error)
		expectVal int64
		expectErr error
	}{
		{name: "closed breaker runs the call", cb: New[int64](keydbConfig("closed")), fn: succeed, expectVal: 7},
		{name: "nil breaker passes through", fn: succeed, expectVal: 7},
		{name: "call errors are returned unchanged", cb: New[int64](keydbConfig("errors")), fn: fail, expectErr: errUnavailable},
		{name: "nil breaker returns call errors", fn: fail, expectErr: errUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			value, err := Execute(tc.cb, tc.fn)

			require.ErrorIs(t, err, tc.expectErr)
			require.Equal(t, tc.expectVal, value)
		})
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		transitions []State
	)

	cfg := keydbConfig("transitions")
	cfg.OnStateChange = func(_ string, _, to State) {
		mu.Lock()
		defer mu.Unlock()

		transitions = append(transitions, to)
	}

	cb := New[int64](cfg)

	_, _ = Execute(cb, fail)
	require.Equal(t, StateClosed, cb.State(), "one failure is below the threshold")

	_, _ = Execute(cb, fail)
	require.Equal(t, StateOpen, cb.State())

	calls := 0
	_, err := Execute(cb, func() (int64, error) {
		calls++

		return 0, nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.True(t, IsRejection(err))
	require.Zero(t, calls)

	require.Eventually(t, func() bool {
		value, err := Execute(cb, succeed)

		return err == nil && value == 7
	}, time.Second, 20*time.Millisecond)
	require.Equal(t, StateClosed, cb.State())

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_IsSuccessful(t *testing.T) {
	t.Parallel()

	cfg := keydbConfig("cancellations")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}

	cb := New[int64](cfg)

	for range 5 {
		_, err := Execute(cb, func() (int64, error) { return 0, context.Canceled })
		require.ErrorIs(t, err, context.Canceled)
	}

	require.Equal(t, StateClosed, cb.State(), "caller cancellations do not trip the breaker")
}

func TestCircuitBreaker_TooManyRequestsWhileHalfOpen(t *testing.T) {
	t.Parallel()

	cb := New[int64](keydbConfig("half-open"))

	_, _ = Execute(cb, fail)
	_, _ = Execute(cb, fail)
	require.Equal(t, StateOpen, cb.State())

	require.Eventually(t, func() bool {
		return cb.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	probing := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = Execute(cb, func() (int64, error) {
			close(probing)
			<-release

			return 1, nil
		})
	}()

	<-probing

	_, err := Execute(cb, succeed)
	require.ErrorIs(t, err, ErrTooManyRequests)
	require.True(t, IsRejection(err))

	close(release)
	<-done
}
