// Package retry wraps fallible operations with bounded retries and
// exponential backoff. The executor knows nothing about what it retries; it
// is used for extraction calls and URL reachability probes alike.
package retry

import (
	"context"
	mathrand "math/rand"
	"time"
)

// Options controls the retry policy.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the backoff base; attempt n sleeps base*2^(n-1) plus jitter.
	BaseDelay time.Duration
	// MaxJitter bounds the random jitter added to each delay. Jitter spreads
	// retries out when many providers fail at once during a shared outage.
	MaxJitter time.Duration
	// OnRetry, if set, is called before each re-attempt with the attempt
	// number that failed and its error. Used for failure accounting.
	OnRetry func(attempt int, err error)
	// Retryable, if set, classifies errors. A false verdict stops the loop
	// immediately; backing off cannot help an error that will not clear
	// within the retry window, such as an active rate-limit block.
	Retryable func(err error) bool
	// Sleep replaces the delay function. Tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns the standard policy: 3 attempts, 2s base delay,
// up to 1s jitter.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxJitter:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 2 * time.Second
	}
	if o.MaxJitter < 0 {
		o.MaxJitter = 0
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

// Do runs op until it succeeds, the attempts are exhausted, or Retryable
// rejects the error; the last error is returned in the failure cases.
// Attempts are strictly sequential; an operation is never raced against its
// own backoff.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if opts.Retryable != nil && !opts.Retryable(err) {
			break
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		delay := Backoff(opts.BaseDelay, attempt)
		if opts.MaxJitter > 0 {
			delay += time.Duration(mathrand.Int63n(int64(opts.MaxJitter)))
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// Backoff returns the base delay for the given failed attempt number:
// base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
