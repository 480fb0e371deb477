package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

var errConn = errors.New("connection refused")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	var mu sync.Mutex
	var transitions []State
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(_ string, _, to State) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	fail := func() error { return errConn }
	assert.ErrorIs(t, cb.Execute(fail), errConn)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), errConn)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.Zero(t, calls)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { calls++; return nil }))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return apperrors.ErrBookNotFound })
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errConn })
	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errConn })
	assert.Equal(t, StateOpen, cb.State())
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "fetch", fastRetry(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errConn
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), "fetch", fastRetry(4), func(context.Context) error {
		calls++
		return errConn
	})
	assert.ErrorIs(t, err, errConn)
	assert.Equal(t, 4, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "fetch", fastRetry(5), func(context.Context) error {
		calls++
		return apperrors.ErrInvalidInput
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, "fetch", cfg, func(context.Context) error { return errConn })
	assert.ErrorIs(t, err, errConn)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "scan", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WithTimeout(context.Background(), time.Second, "scan", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestPolicy_Do(t *testing.T) {
	p := &Policy{
		Breaker: NewCircuitBreaker("catalog", CircuitBreakerConfig{FailureThreshold: 10}),
		Retry:   fastRetry(3),
		Timeout: time.Second,
	}
	calls := 0
	err := p.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls == 1 {
			return errConn
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, StateClosed, p.Breaker.State())
}
