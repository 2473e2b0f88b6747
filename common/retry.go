package common

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// BackoffFunc returns how long to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// SleepFunc waits for d unless ctx ends first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how often an operation is attempted and how long to pause in between.
type RetryPolicy struct {
	Attempts int
	Backoff  BackoffFunc
	Sleep    SleepFunc
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

// ConstantBackoff waits the same delay after every failure.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles base after each failed attempt and adds up to base of jitter.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		if attempt < 1 {
			attempt = 1
		}
		delay := base * time.Duration(1<<(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(base)))
		return delay + jitter
	}
}

// Retry runs fn until it succeeds or the policy's attempts are used up, returning the last
// error. fn receives the 1-based attempt number. No pause follows the final attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = NoBackoff
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(lastErr, err)
			}
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return errors.Join(lastErr, err)
			}
		}
	}
	return lastErr
}
