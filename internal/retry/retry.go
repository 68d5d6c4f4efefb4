package retry

import (
	"context"
	"fmt"
	"time"
)

// Backoff returns the wait before the retry that follows failed attempt n
// (n starts at 1).
type Backoff func(attempt int) time.Duration

// Fixed waits d before every retry.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// MaxWait caps every Exponential wait.
const MaxWait = 24 * time.Hour

// Exponential doubles from base: base, 2*base, 4*base, ... up to MaxWait.
func Exponential(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			if d >= MaxWait/2 {
				return MaxWait
			}
			d *= 2
		}
		return min(d, MaxWait)
	}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately. Tests use it to run retry loops without delay.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
	// Retryable decides whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(err error) bool
	Sleep     Sleeper
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// WithRetry runs fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. It returns the number of attempts made together
// with the final error, which wraps the last error from fn.
func WithRetry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) (int, error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Backoff == nil {
		config.Backoff = Fixed(0)
	}
	if config.Sleep == nil {
		config.Sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}

		if config.Retryable != nil && !config.Retryable(err) {
			return attempt, err
		}

		if attempt == config.MaxAttempts {
			return attempt, fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
		}

		wait := config.Backoff(attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, wait, err)
		}

		if serr := config.Sleep(ctx, wait); serr != nil {
			return attempt, fmt.Errorf("retry interrupted after %d attempts: %w", attempt, err)
		}
	}
}
