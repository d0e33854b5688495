package resilience

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test", threshold, cooldown)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Allow())
		b.Record(nil)
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	boom := eris.New("boom")

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Record(boom)
	}
	assert.Equal(t, BreakerClosed, b.State())

	require.NoError(t, b.Allow())
	b.Record(boom)
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	boom := eris.New("boom")

	b.Record(boom)
	b.Record(boom)
	b.Record(nil)
	b.Record(boom)
	b.Record(boom)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)
	b.Record(eris.New("boom"))
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State())
	require.NoError(t, b.Allow())

	b.Record(nil)
	assert.Equal(t, BreakerClosed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)
	b.Record(eris.New("boom"))

	*now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	b.Record(eris.New("still down"))

	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
}

func TestBreakerSetSharesPerName(t *testing.T) {
	set := NewBreakerSet(1, time.Minute)
	gemini := set.For("gemini")
	require.Same(t, gemini, set.For("gemini"))
	assert.NotSame(t, gemini, set.For("claude"))

	gemini.Record(eris.New("boom"))
	states := set.States()
	assert.Equal(t, "open", states["gemini"])
	assert.Equal(t, "closed", states["claude"])
}
