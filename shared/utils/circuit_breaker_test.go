package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return errUpstream })
		assert.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	// Calls are rejected without running the function while open
	ran := false
	err := cb.Call(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerStatusAndReset(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	require.Error(t, cb.Call(func() error { return errUpstream }))

	status := cb.Status()
	assert.Equal(t, StateOpen, status.State)
	assert.Equal(t, 2, status.Failures)

	cb.Reset()
	status = cb.Status()
	assert.Equal(t, StateClosed, status.State)
	assert.Equal(t, 0, status.Failures)
	require.NoError(t, cb.Call(func() error { return nil }))
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	require.NoError(t, cb.Call(func() error { return nil }))
	require.Error(t, cb.Call(func() error { return errUpstream }))

	// One failure after a success is below the threshold
	assert.Equal(t, StateClosed, cb.GetState())
}
