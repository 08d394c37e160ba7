package attempt

import (
	"sync"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	tracker := NewTracker(time.Minute, 2)

	if !tracker.Allow("chat_1") {
		t.Fatal("first attempt denied")
	}
	if !tracker.Allow("chat_1") {
		t.Fatal("second attempt denied")
	}
	if tracker.Allow("chat_1") {
		t.Fatal("third attempt allowed, want denial")
	}
	if tracker.Remaining("chat_1") != 0 {
		t.Errorf("Remaining() = %d, want 0", tracker.Remaining("chat_1"))
	}

	// other keys are tracked independently
	if !tracker.Allow("chat_2") {
		t.Fatal("attempt on a fresh key denied")
	}
}

func TestWindowExpiry(t *testing.T) {
	tracker := NewTracker(30*time.Millisecond, 1)

	if !tracker.Allow("chat_1") {
		t.Fatal("first attempt denied")
	}
	if tracker.Allow("chat_1") {
		t.Fatal("second attempt allowed inside the window")
	}

	time.Sleep(50 * time.Millisecond)
	if !tracker.Allow("chat_1") {
		t.Fatal("attempt denied after the window expired")
	}
}

func TestReset(t *testing.T) {
	tracker := NewTracker(time.Minute, 1)

	tracker.Allow("chat_1")
	if tracker.Allow("chat_1") {
		t.Fatal("second attempt allowed, want denial")
	}
	tracker.Reset("chat_1")
	if !tracker.Allow("chat_1") {
		t.Fatal("attempt denied after reset")
	}
}

func TestUnlimitedWhenMaxZero(t *testing.T) {
	tracker := NewTracker(time.Minute, 0)
	for i := 0; i < 100; i++ {
		if !tracker.Allow("chat_1") {
			t.Fatal("unlimited tracker denied an attempt")
		}
	}
}

func TestConcurrentAllow(t *testing.T) {
	tracker := NewTracker(time.Minute, 50)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- tracker.Allow("chat_shared")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("allowed %d attempts, want exactly 50", count)
	}
}
