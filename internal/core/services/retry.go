package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// Retry defaults: three attempts, waiting 2s then 4s between them.
const (
	DefaultRetryAttempts       = 3
	DefaultRetryBaseDelay      = 2 * time.Second
	DefaultRetryMultiplier     = 2.0
	DefaultRetryAttemptTimeout = 120 * time.Second
)

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy bounds the attempts made for one generation.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int

	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration

	// Multiplier scales the wait after each further failure.
	Multiplier float64

	// AttemptTimeout bounds a single call. Zero means no bound.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       DefaultRetryAttempts,
		BaseDelay:      DefaultRetryBaseDelay,
		Multiplier:     DefaultRetryMultiplier,
		AttemptTimeout: DefaultRetryAttemptTimeout,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Retrier runs an operation under a RetryPolicy.
type Retrier struct {
	policy RetryPolicy
	sleep  Sleeper
}

// NewRetrier creates a retrier. Missing policy fields take their defaults
// and a nil sleep means SleepContext.
func NewRetrier(policy RetryPolicy, sleep Sleeper) *Retrier {
	def := DefaultRetryPolicy()
	if policy.Attempts <= 0 {
		policy.Attempts = def.Attempts
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = def.Multiplier
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Retrier{policy: policy, sleep: sleep}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Do calls fn until it succeeds, fails permanently or the attempts run
// out. It returns the number of calls made. Exhaustion is reported as
// domain.ErrGenerationTimeout wrapping the last failure.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var last error
	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		err := r.call(ctx, fn)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if !Retryable(err) {
			return attempt, err
		}
		last = err

		if attempt == r.policy.Attempts {
			break
		}
		delay := r.policy.Delay(attempt)
		logger.Debug("attempt %d/%d failed: %v; retrying in %s", attempt, r.policy.Attempts, err, delay)
		if err := r.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
	return r.policy.Attempts, fmt.Errorf("%w after %d attempts: %w", domain.ErrGenerationTimeout, r.policy.Attempts, last)
}

func (r *Retrier) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// Retryable reports whether a failed call may succeed if repeated.
// Rejections and invalid input are permanent; a cancelled caller is final.
// Everything else, including a single attempt running out of time, is
// treated as transient.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrBackendRejected),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
