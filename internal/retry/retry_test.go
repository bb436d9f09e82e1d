package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	}, Options{MaxAttempts: 3, BaseDelay: time.Millisecond})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoFailTwiceThenSucceed(t *testing.T) {
	calls := 0
	var delays []time.Duration

	opts := Options{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		MaxJitter:   5 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	result, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, opts)

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)

	// Exactly two delays: base*2^0 and base*2^1, each plus jitter < MaxJitter
	assert.Len(t, delays, 2)
	for n, d := range delays {
		lower := Backoff(opts.BaseDelay, n+1)
		assert.GreaterOrEqual(t, d, lower, "delay %d", n)
		assert.Less(t, d, lower+opts.MaxJitter, "delay %d", n)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	lastErr := errors.New("always failing")

	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", lastErr
	}, Options{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxJitter:   0,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	})

	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	slept := 0
	blocked := errors.New("provider in cooldown")

	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", blocked
	}, Options{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept++
			return nil
		},
		Retryable: func(err error) bool { return !errors.Is(err, blocked) },
	})

	// A rejected error ends the loop after one attempt, with no backoff
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, slept)
}

func TestDoOnRetryAccounting(t *testing.T) {
	var retried []int
	_, _ = Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	}, Options{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		OnRetry:     func(attempt int, err error) { retried = append(retried, attempt) },
	})

	// OnRetry fires after every failed attempt except the last
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	}, Options{MaxAttempts: 3, BaseDelay: time.Millisecond})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, Backoff(base, 1))
	assert.Equal(t, 4*time.Second, Backoff(base, 2))
	assert.Equal(t, 8*time.Second, Backoff(base, 3))
}
