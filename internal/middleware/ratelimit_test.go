package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per IP")

	clock = clock.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, time.Second)
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("10.0.0.1")
	clock = clock.Add(2 * time.Second)
	rl.cleanup()

	assert.Empty(t, rl.requests)
}
