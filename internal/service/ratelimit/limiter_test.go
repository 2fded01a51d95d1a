package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := New(1, 2, time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys have independent buckets")

	l.now = func() time.Time { return base.Add(time.Second) }
	assert.True(t, l.Allow("10.0.0.1"), "one token refilled")
}

func TestLimiter_EvictsIdleKeys(t *testing.T) {
	l := New(10, 1, time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}
