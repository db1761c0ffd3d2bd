// Package retry runs an operation under a bounded attempt budget with a
// monotonically increasing backoff between attempts.
package retry

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int
	// Backoff returns the wait before attempt n+1, given n completed attempts.
	Backoff func(attempt int) time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
	Clock     clockz.Clock
}

// Linear grows the wait by step per attempt, never exceeding limit.
// A zero limit leaves the growth uncapped.
func Linear(step, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := step * time.Duration(attempt)
		if limit > 0 && d > limit {
			return limit
		}
		return d
	}
}

// Constant waits the same duration between every attempt.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func (p Policy) clock() clockz.Clock {
	if p.Clock == nil {
		return clockz.RealClock
	}
	return p.Clock
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempt
// budget runs out, or ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	clock := p.clock()

	var zero T
	var lastErr error
	for i := 1; i <= attempts; i++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if i == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(i)
		}
		if wait <= 0 {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			continue
		}
		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
