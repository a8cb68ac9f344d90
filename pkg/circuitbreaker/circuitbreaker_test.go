package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errHostDown = errors.New("media source returned 503")

func probeConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Millisecond,
		MaxRequestsHalfOpen: 2,
	}
}

func trip(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < probeConfig().FailureThreshold; i++ {
		err := cb.Execute(context.Background(), func() error { return errHostDown })
		require.Error(t, err)
	}
	require.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_OpensAfterFailureStreak(t *testing.T) {
	cb := New(probeConfig())

	// Two failures stay under the threshold.
	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return errHostDown })
		assert.ErrorIs(t, err, errHostDown)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	// The third opens the breaker; subsequent calls never run.
	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	assert.Equal(t, StateOpen, cb.GetState())

	calls := 0
	err := cb.Execute(context.Background(), func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 0, calls)
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := New(probeConfig())

	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))

	// The streak restarted, so two more failures are still tolerated.
	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(probeConfig())
	trip(t, cb)

	time.Sleep(probeConfig().Timeout + 10*time.Millisecond)

	// Two successful probes close the breaker again.
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(probeConfig())
	trip(t, cb)

	time.Sleep(probeConfig().Timeout + 10*time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenAdmissionCap(t *testing.T) {
	cb := New(probeConfig())
	trip(t, cb)

	time.Sleep(probeConfig().Timeout + 10*time.Millisecond)

	// One success keeps it half-open and consumes an admission slot; the
	// second slot goes to another call, the third is rejected.
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.Equal(t, StateHalfOpen, cb.GetState())

	blocked := make(chan struct{})
	release := make(chan struct{})
	go cb.Execute(context.Background(), func() error {
		close(blocked)
		<-release
		return nil
	})
	<-blocked

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
	close(release)
}

func TestCircuitBreaker_ExecuteWithResult(t *testing.T) {
	cb := New(probeConfig())

	got, err := cb.ExecuteWithResult(context.Background(), func() (any, error) {
		return "player", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "player", got)

	got, err = cb.ExecuteWithResult(context.Background(), func() (any, error) {
		return nil, errHostDown
	})
	assert.ErrorIs(t, err, errHostDown)
	assert.Nil(t, got)
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb := New(probeConfig())

	var mu sync.Mutex
	var transitions []string
	cb.OnStateChange(func(from, to State) {
		mu.Lock()
		transitions = append(transitions, from.String()+"->"+to.String())
		mu.Unlock()
	})

	trip(t, cb)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 1 && transitions[0] == "closed->open"
	}, time.Second, 5*time.Millisecond)
}

func TestCircuitBreaker_StatsAndReset(t *testing.T) {
	cb := New(probeConfig())

	require.Error(t, cb.Execute(context.Background(), func() error { return errHostDown }))

	stats := cb.GetStats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 1, stats.FailureCount)
	assert.False(t, stats.LastFailureTime.IsZero())

	trip(t, cb)
	cb.Reset()

	stats = cb.GetStats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, StateClosed, cb.GetState())
}
