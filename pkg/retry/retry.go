// Package retry provides bounded retries with exponential backoff and
// jitter for operations against flaky dependencies.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// Config controls the retry schedule.
type Config struct {
	MaxRetries   int           // Retries after the initial attempt
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Upper bound on any single delay
	Multiplier   float64       // Backoff multiplier between retries
	JitterFactor float64       // Random jitter as a fraction of the delay
}

// DefaultConfig returns a schedule suited to network dependencies.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

// RetryableError lets error types declare their own retryability.
type RetryableError interface {
	IsRetryable() bool
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// retry budget runs out, or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value alongside the
// error. The zero value is returned on failure.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return zero, lastErr
}

// IsRetryable reports whether an error is worth another attempt. Errors
// implementing RetryableError decide for themselves; everything else is
// matched against known transient failure patterns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re RetryableError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"temporary failure",
		"rate limit",
		"too many requests",
		"service unavailable",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// applyJitter spreads a delay by up to the given fraction in either
// direction.
func applyJitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 || delay <= 0 {
		return delay
	}

	jitter := (rand.Float64()*2 - 1) * factor * float64(delay)
	jittered := time.Duration(float64(delay) + jitter)
	if jittered < 0 {
		return 0
	}
	return jittered
}
