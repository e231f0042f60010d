package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(2)
	r.now = func() time.Time { return now }

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, r.Allow())
}

func TestRateLimiter_Unlimited(t *testing.T) {
	r := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, r.Allow())
	}
	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background()))
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(1)
	r.now = func() time.Time { return now }
	r.pollInterval = time.Millisecond
	assert.True(t, r.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
