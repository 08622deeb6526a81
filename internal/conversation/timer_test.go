package conversation

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRemovalScheduler_Fires(t *testing.T) {
	s := NewRemovalScheduler()
	defer s.Stop()

	var fired atomic.Bool
	done := make(chan struct{})
	s.ScheduleAfter(10*time.Millisecond, func() {
		fired.Store(true)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled action did not fire")
	}
	if !fired.Load() {
		t.Fatal("expected action to run")
	}

	// The completed action no longer counts as pending.
	deadline := time.Now().Add(time.Second)
	for s.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pending = %d, want 0", s.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRemovalScheduler_Cancel(t *testing.T) {
	s := NewRemovalScheduler()
	defer s.Stop()

	var fired atomic.Bool
	token := s.ScheduleAfter(20*time.Millisecond, func() {
		fired.Store(true)
	})
	s.Cancel(token)

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled action must not fire")
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}

	s.Cancel("removal_999")
	s.Cancel(token)
}

func TestRemovalScheduler_StopCancelsAll(t *testing.T) {
	s := NewRemovalScheduler()

	var fired atomic.Int32
	for i := 0; i < 3; i++ {
		s.ScheduleAfter(20*time.Millisecond, func() {
			fired.Add(1)
		})
	}
	if s.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", s.Pending())
	}

	s.Stop()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("%d actions fired after Stop", got)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}
}
