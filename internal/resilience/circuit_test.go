package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestBreaker(threshold int, clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Minute})
	cb.nowFunc = clock.Now
	return cb
}

func call(cb *CircuitBreaker, err error) (int, error) {
	calls := 0
	_, got := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		calls++
		return "", err
	})
	return calls, got
}

func TestCircuitBreaker_OpensAfterQuotaFailures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(2, clock)
	quota := NewRateLimitError(errors.New("slow down"), 429)

	call(cb, quota)
	assert.Equal(t, CircuitClosed, cb.State())
	call(cb, quota)
	assert.Equal(t, CircuitOpen, cb.State())

	calls, err := call(cb, nil)
	assert.Zero(t, calls)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsQuotaError(err))
}

func TestCircuitBreaker_IgnoresNonQuotaErrors(t *testing.T) {
	cb := newTestBreaker(1, &fakeClock{now: time.Unix(0, 0)})

	call(cb, errors.New("malformed pdf"))
	call(cb, errors.New("malformed pdf"))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := newTestBreaker(2, &fakeClock{now: time.Unix(0, 0)})
	quota := errors.New("429 resource exhausted")

	call(cb, quota)
	call(cb, nil)
	call(cb, quota)

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(1, clock)
	quota := NewUnavailableError(nil, 503)

	call(cb, quota)
	require.Equal(t, CircuitOpen, cb.State())

	clock.now = clock.now.Add(time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A failed probe reopens immediately.
	calls, _ := call(cb, quota)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CircuitOpen, cb.State())

	clock.now = clock.now.Add(time.Minute)
	calls, err := call(cb, nil)
	assert.Equal(t, 1, calls)
	assert.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ResetAndStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	call(cb, NewRateLimitError(nil, 429))
	cb.Reset()

	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(0, 0)
	assert.Equal(t, DefaultCircuitBreakerConfig().FailureThreshold, cfg.FailureThreshold)

	cfg = FromCircuitConfig(7, time.Second)
	assert.Equal(t, 7, cfg.FailureThreshold)
	assert.Equal(t, time.Second, cfg.ResetTimeout)
}
