package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier(DefaultRetryPolicy(), sleeper.Sleep)

	calls := 0
	attempts, err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrStillProcessing
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Delays())
}

func TestRetrier_Exhaustion(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier(DefaultRetryPolicy(), sleeper.Sleep)

	calls := 0
	attempts, err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		return fmt.Errorf("connect: %w", domain.ErrBackendUnreachable)
	})
	require.ErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.ErrorIs(t, err, domain.ErrBackendUnreachable)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Delays())
}

func TestRetrier_PermanentFailureStops(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier(DefaultRetryPolicy(), sleeper.Sleep)

	attempts, err := r.Do(context.Background(), func(_ context.Context) error {
		return fmt.Errorf("status 404: %w", domain.ErrBackendRejected)
	})
	require.ErrorIs(t, err, domain.ErrBackendRejected)
	assert.NotErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeper.Delays())
}

func TestRetrier_AttemptTimeoutIsRetried(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := DefaultRetryPolicy()
	policy.AttemptTimeout = 10 * time.Millisecond
	r := NewRetrier(policy, sleeper.Sleep)

	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.Equal(t, 3, attempts)
	assert.Len(t, sleeper.Delays(), 2)
}

func TestRetrier_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier(DefaultRetryPolicy(), (&recordingSleeper{}).Sleep)

	attempts, err := r.Do(ctx, func(_ context.Context) error {
		cancel()
		return domain.ErrStillProcessing
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_SleepInterrupted(t *testing.T) {
	r := NewRetrier(DefaultRetryPolicy(), func(_ context.Context, _ time.Duration) error {
		return context.DeadlineExceeded
	})

	attempts, err := r.Do(context.Background(), func(_ context.Context) error {
		return domain.ErrStillProcessing
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestNewRetrier_Defaults(t *testing.T) {
	r := NewRetrier(RetryPolicy{BaseDelay: -1, Multiplier: 0.5}, nil)
	p := r.Policy()
	assert.Equal(t, DefaultRetryAttempts, p.Attempts)
	assert.Equal(t, DefaultRetryBaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultRetryMultiplier, p.Multiplier)
	assert.NotNil(t, r.sleep)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{domain.ErrStillProcessing, true},
		{fmt.Errorf("x: %w", domain.ErrBackendUnreachable), true},
		{errors.New("status 500"), true},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("x: %w", domain.ErrBackendRejected), false},
		{domain.ErrInvalidInput, false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
