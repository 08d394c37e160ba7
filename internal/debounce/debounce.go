// Package debounce coalesces bursts of triggers into a single call, per key.
package debounce

import (
	"sync"
	"time"
)

// Keyed runs fn(key) once a key has stayed quiet for the full delay.
type Keyed struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fn     func(key string)
}

func NewKeyed(delay time.Duration, fn func(key string)) *Keyed {
	return &Keyed{delay: delay, timers: make(map[string]*time.Timer), fn: fn}
}

// Trigger arms or re-arms the timer for key.
func (d *Keyed) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		d.fn(key)
	})
}

// Stop cancels every pending timer.
func (d *Keyed) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
