package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSpec(attempts int) RetrySpec {
	return RetrySpec{
		Attempts:  attempts,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		Classify:  func(error) bool { return true },
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastSpec(3), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	val, err := RetryVal(context.Background(), fastSpec(3), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", eris.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastSpec(3), "op", func(context.Context) error {
		calls++
		return eris.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	spec := fastSpec(5)
	spec.Classify = nil // default IsTransient
	calls := 0
	err := Retry(context.Background(), spec, "op", func(context.Context) error {
		calls++
		return eris.New("pricing: unexpected status 404: not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastSpec(5), "op", func(context.Context) error {
		calls++
		cancel()
		return eris.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	spec := RetrySpec{BaseDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond}.normalized()
	spec.Jitter = 0
	assert.Equal(t, 10*time.Millisecond, backoff(0, spec))
	assert.Equal(t, 20*time.Millisecond, backoff(1, spec))
	assert.Equal(t, 35*time.Millisecond, backoff(2, spec))
	assert.Equal(t, 35*time.Millisecond, backoff(5, spec))
}
