package timer

import (
	"testing"
	"time"
)

func TestTimerManager_FiresOnce(t *testing.T) {
	manager := NewTimerManager()
	defer manager.Stop()

	fired := make(chan struct{}, 1)
	manager.AddTimer(10*time.Millisecond, 0, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Timer did not fire")
	}

	// A one-shot task must not fire again.
	select {
	case <-fired:
		t.Fatal("One-shot timer fired twice")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestTimerManager_RemovePreventsFiring(t *testing.T) {
	manager := NewTimerManager()
	defer manager.Stop()

	fired := make(chan struct{}, 1)
	id := manager.AddTimer(200*time.Millisecond, 0, func() {
		fired <- struct{}{}
	})
	manager.RemoveTimer(id)

	select {
	case <-fired:
		t.Fatal("Removed timer fired")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestTimerManager_RepeatingTask(t *testing.T) {
	manager := NewTimerManager()
	defer manager.Stop()

	fired := make(chan struct{}, 10)
	manager.AddTimer(10*time.Millisecond, 50*time.Millisecond, func() {
		fired <- struct{}{}
	})

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("Repeating timer stopped after %d fires", i)
		}
	}
}
