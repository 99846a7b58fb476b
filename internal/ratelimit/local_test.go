package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterBurstThenRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res := l.Allow("ip:1", 1, 3)
		require.True(t, res.Allowed, "request %d", i)
	}
	denied := l.Allow("ip:1", 1, 3)
	assert.False(t, denied.Allowed)
	assert.Greater(t, denied.RetryAfter, time.Duration(0))

	other := l.Allow("ip:2", 1, 3)
	assert.True(t, other.Allowed)

	now = now.Add(time.Second)
	assert.True(t, l.Allow("ip:1", 1, 3).Allowed)
}

func TestLocalLimiterPrunesIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter()
	l.now = func() time.Time { return now }

	l.Allow("stale", 1, 1)
	now = now.Add(localIdleTTL + time.Second)
	l.pruneLocked(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "stale")
}

func TestLimiterUnlimitedWithoutPolicy(t *testing.T) {
	l := &Limiter{local: NewLocalLimiter(), policies: map[Scope]policy{}}

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(t.Context(), ScopeDashboard, "1.2.3.4").Allowed)
	}
}

func TestLimiterFallsBackToLocal(t *testing.T) {
	l := &Limiter{
		local: NewLocalLimiter(),
		policies: map[Scope]policy{
			ScopeDashboard: {rate: 0.001, burst: 2},
		},
	}

	assert.True(t, l.Allow(t.Context(), ScopeDashboard, "1.2.3.4").Allowed)
	assert.True(t, l.Allow(t.Context(), ScopeDashboard, "1.2.3.4").Allowed)
	assert.False(t, l.Allow(t.Context(), ScopeDashboard, "1.2.3.4").Allowed)
	assert.True(t, l.Allow(t.Context(), ScopeDashboard, "5.6.7.8").Allowed)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 60*time.Second, bucketTTL(1, 30))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}
