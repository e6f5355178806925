package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestLimiter returns a limiter with a controllable clock.
func newTestLimiter(quota int, window time.Duration) (*FixedWindow, *time.Time) {
	l := NewFixedWindow(quota, window)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheck_AllowsUpToQuota(t *testing.T) {
	l, _ := newTestLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		allowed, _ := l.Check("bob@x.com")
		assert.True(t, allowed, "attempt %d should pass", i+1)
	}
}

func TestCheck_FourthRequestDenied_WithCooldown(t *testing.T) {
	l, _ := newTestLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		l.Check("bob@x.com")
	}
	allowed, retryAfter := l.Check("bob@x.com")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Hour)
}

func TestCheck_WindowElapse_ResetsQuota(t *testing.T) {
	l, now := newTestLimiter(3, time.Hour)
	for i := 0; i < 4; i++ {
		l.Check("bob@x.com")
	}
	*now = now.Add(time.Hour + time.Second)
	for i := 0; i < 3; i++ {
		allowed, _ := l.Check("bob@x.com")
		assert.True(t, allowed, "attempt %d after reset should pass", i+1)
	}
	allowed, _ := l.Check("bob@x.com")
	assert.False(t, allowed)
}

func TestCheck_SubjectsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Hour)
	allowed, _ := l.Check("a@x.com")
	assert.True(t, allowed)
	allowed, _ = l.Check("b@x.com")
	assert.True(t, allowed)
	allowed, _ = l.Check("a@x.com")
	assert.False(t, allowed)
}

func TestCheck_ConcurrentRequests_NeverExceedQuota(t *testing.T) {
	l := NewFixedWindow(3, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Check("bob@x.com"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, allowedCount)
}

func TestPrune_DropsElapsedWindows(t *testing.T) {
	l, now := newTestLimiter(3, time.Hour)
	l.Check("a@x.com")
	l.Check("b@x.com")
	*now = now.Add(2 * time.Hour)
	l.Check("c@x.com")
	l.Prune()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.entries, 1)
	_, ok := l.entries["c@x.com"]
	assert.True(t, ok)
}
