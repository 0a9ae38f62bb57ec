package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl := newRateLimiter(3, 30*time.Millisecond)

	for i := range 3 {
		assert.True(t, rl.allow(), "message %d within burst", i)
	}
	assert.False(t, rl.allow())

	assert.Eventually(t, rl.allow, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_InvalidParametersAreClamped(t *testing.T) {
	rl := newRateLimiter(0, 0)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}
