package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_Allow(t *testing.T) {
	l := NewClientLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refills per second")
	assert.False(t, l.Allow("a"))
}

func TestClientLimiter_Disabled(t *testing.T) {
	l := NewClientLimiter(0, 0)
	assert.False(t, l.Enabled())
	for range 100 {
		assert.True(t, l.Allow("a"))
	}
	assert.Equal(t, 0, l.Clients())

	var nilLimiter *ClientLimiter
	assert.True(t, nilLimiter.Allow("a"))
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	l := NewClientLimiter(10, 10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Clients())

	now = now.Add(defaultIdleTTL + time.Second)
	l.Allow("c")
	assert.Equal(t, 1, l.Clients())
}
