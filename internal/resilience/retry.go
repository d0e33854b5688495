package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetrySpec controls Retry's attempt count and backoff curve.
type RetrySpec struct {
	// Attempts is the total number of tries including the first.
	Attempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff sleep.
	MaxDelay time.Duration
	// Jitter widens each sleep by up to this fraction either way.
	Jitter float64
	// Classify decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Classify func(error) bool
}

// DefaultRetrySpec suits short interactive API calls.
func DefaultRetrySpec() RetrySpec {
	return RetrySpec{
		Attempts:  3,
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		Jitter:    0.2,
	}
}

func (s RetrySpec) normalized() RetrySpec {
	if s.Attempts <= 0 {
		s.Attempts = 3
	}
	if s.BaseDelay <= 0 {
		s.BaseDelay = 250 * time.Millisecond
	}
	if s.MaxDelay <= 0 {
		s.MaxDelay = 5 * time.Second
	}
	if s.Jitter < 0 {
		s.Jitter = 0
	}
	if s.Classify == nil {
		s.Classify = IsTransient
	}
	return s
}

// Retry runs fn, re-running it on transient failure until spec.Attempts
// is exhausted or the context ends. op names the call in retry logs.
func Retry(ctx context.Context, spec RetrySpec, op string, fn func(context.Context) error) error {
	_, err := RetryVal(ctx, spec, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal is Retry for calls that return a value.
func RetryVal[T any](ctx context.Context, spec RetrySpec, op string, fn func(context.Context) (T, error)) (T, error) {
	spec = spec.normalized()

	var zero T
	var lastErr error
	for attempt := 0; attempt < spec.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !spec.Classify(err) || attempt == spec.Attempts-1 {
			break
		}

		zap.L().Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff(attempt, spec))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func backoff(attempt int, spec RetrySpec) time.Duration {
	d := float64(spec.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(spec.MaxDelay) {
		d = float64(spec.MaxDelay)
	}
	if spec.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * spec.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
