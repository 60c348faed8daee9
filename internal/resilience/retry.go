// Package resilience retries transient failures with capped exponential backoff.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how a failing call is retried.
type Policy struct {
	MaxAttempts    int           // tries including the first; 1 disables retries
	AttemptTimeout time.Duration // per try; 0 leaves only the caller's deadline
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64 // each delay varies by ±Jitter of itself

	// Retryable reports whether err is worth another try. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry runs before each backoff sleep; attempt counts from 1.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is the retrieval policy: two retries, 2s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		AttemptTimeout: 2 * time.Second,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2,
		Jitter:         0.25,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	p.Jitter = min(max(p.Jitter, 0), 1)
	return p
}

// backoff is the delay after the given zero-based attempt.
func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff)
	for range attempt {
		delay *= p.Multiplier
		if delay >= float64(p.MaxBackoff) {
			break
		}
	}
	delay = min(delay, float64(p.MaxBackoff))
	if p.Jitter > 0 {
		delay *= 1 + p.Jitter*(2*rand.Float64()-1) //nolint:gosec // jitter
	}
	return time.Duration(delay)
}

// Do runs fn until it succeeds, the policy gives up, or ctx ends.
// The last error from fn is returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := try(ctx, p.AttemptTimeout, fn)
		switch {
		case err == nil:
			return val, nil
		// a per-attempt timeout is retried, the caller's cancellation is not
		case ctx.Err() != nil,
			attempt+1 >= p.MaxAttempts,
			p.Retryable != nil && !p.Retryable(err):
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}
		if !sleep(ctx, p.backoff(attempt)) {
			return zero, err
		}
	}
}

func try[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// sleep waits d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// LogRetries returns an OnRetry hook that logs each retry at warn level.
func LogRetries(logger *zap.Logger, operation string) func(int, error) {
	return func(attempt int, err error) {
		logger.Warn("Retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
