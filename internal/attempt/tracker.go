package attempt

import (
	"sync"
	"time"
)

// Tracker counts attempts per key inside a sliding window. It is an
// injected, explicitly-owned component: construct one, pass it to whatever
// needs rate-limiting, let it die with its owner. Expired attempts are
// pruned on access; there is no background goroutine to manage.
type Tracker struct {
	window time.Duration
	max    int

	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewTracker limits each key to max attempts per window. A max of zero or
// less disables limiting.
func NewTracker(window time.Duration, max int) *Tracker {
	return &Tracker{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records one attempt for key and reports whether it fits the window.
// Denied attempts are not recorded.
func (t *Tracker) Allow(key string) bool {
	if t.max <= 0 {
		return true
	}
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(now)
	list := t.attempts[key]
	if len(list) >= t.max {
		return false
	}
	t.attempts[key] = append(list, now)
	return true
}

// Remaining reports how many attempts key has left in the current window.
func (t *Tracker) Remaining(key string) int {
	if t.max <= 0 {
		return 1
	}
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(now)
	left := t.max - len(t.attempts[key])
	if left < 0 {
		return 0
	}
	return left
}

// Reset forgets key entirely, e.g. after a successful run that should not
// count against the caller.
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, key)
}

func (t *Tracker) pruneLocked(now time.Time) {
	for key, list := range t.attempts {
		kept := list[:0]
		for _, at := range list {
			if now.Sub(at) < t.window {
				kept = append(kept, at)
			}
		}
		if len(kept) == 0 {
			delete(t.attempts, key)
			continue
		}
		t.attempts[key] = kept
	}
}
