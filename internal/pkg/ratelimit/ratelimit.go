package ratelimit

import (
	"sync"
	"time"
)

// Limiter bounds how often a subject may perform an action within a fixed
// window. Implementations must keep Check's read-modify-write atomic so two
// concurrent requests cannot both pass the quota on the last slot.
type Limiter interface {
	// Check records an attempt for subject. It returns whether the attempt is
	// allowed and, when denied, the remaining cooldown until the window resets.
	Check(subject string) (allowed bool, retryAfter time.Duration)
}

type entry struct {
	count         int
	windowResetAt time.Time
}

// FixedWindow is an in-memory, per-subject fixed-window limiter: at most
// quota attempts per window. State is process-local; a multi-instance
// deployment should back Limiter with a shared store instead.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*entry
	quota   int
	window  time.Duration
	now     func() time.Time // swapped out in tests
}

func NewFixedWindow(quota int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		entries: make(map[string]*entry),
		quota:   quota,
		window:  window,
		now:     time.Now,
	}
}

func (l *FixedWindow) Check(subject string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[subject]
	if !ok || now.After(e.windowResetAt) {
		l.entries[subject] = &entry{count: 1, windowResetAt: now.Add(l.window)}
		return true, 0
	}
	e.count++
	if e.count <= l.quota {
		return true, 0
	}
	return false, e.windowResetAt.Sub(now)
}

// Prune drops subjects whose window has elapsed. Callers may run this
// periodically to bound memory; correctness does not depend on it.
func (l *FixedWindow) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for subject, e := range l.entries {
		if now.After(e.windowResetAt) {
			delete(l.entries, subject)
		}
	}
}
