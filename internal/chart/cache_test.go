package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	c := NewTTLCache(10 * time.Millisecond)
	c.Set("k", "v")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_MissingKeyReturnsFalse(t *testing.T) {
	c := NewTTLCache(time.Minute)

	_, ok := c.Get("nope")

	assert.False(t, ok)
}

func TestRateLimiter_CapsRequestsPerWindow(t *testing.T) {
	r := NewRateLimiter(2)

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
}
