package ratelimit

import (
	"testing"
	"time"
)

func TestTracker_AllowUntilExhausted(t *testing.T) {
	tracker := NewTracker(3)

	for i := 0; i < 3; i++ {
		if !tracker.Allow() {
			t.Fatalf("expected budget remaining at request %d", i)
		}

		tracker.RecordLocal()
	}

	if tracker.Allow() {
		t.Error("expected budget exhausted after limit requests")
	}
}

func TestTracker_RecordFromHeaders(t *testing.T) {
	tracker := NewTracker(60)
	reset := time.Now().Add(30 * time.Minute)

	tracker.Record(42, reset)

	status := tracker.Status()
	if status.Remaining != 42 {
		t.Errorf("expected remaining 42, got %d", status.Remaining)
	}

	if status.Used != 18 {
		t.Errorf("expected used 18, got %d", status.Used)
	}

	if !status.Reset.Equal(reset) {
		t.Errorf("expected reset %v, got %v", reset, status.Reset)
	}
}

func TestTracker_RecordClampsNegativeRemaining(t *testing.T) {
	tracker := NewTracker(60)

	tracker.Record(-5, time.Now().Add(time.Minute))

	if status := tracker.Status(); status.Remaining != 0 {
		t.Errorf("expected remaining clamped to 0, got %d", status.Remaining)
	}

	if tracker.Allow() {
		t.Error("expected no budget after clamping")
	}
}

func TestTracker_RecordAboveLimitClampsUsed(t *testing.T) {
	tracker := NewTracker(60)

	tracker.Record(100, time.Time{})

	if status := tracker.Status(); status.Used != 0 {
		t.Errorf("expected used clamped to 0, got %d", status.Used)
	}
}

func TestTracker_Exhaust(t *testing.T) {
	tracker := NewTracker(60)
	reset := time.Now().Add(45 * time.Minute)

	tracker.Exhaust(reset)

	if tracker.Allow() {
		t.Error("expected no budget after exhaust")
	}

	status := tracker.Status()
	if status.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", status.Remaining)
	}

	if !status.Reset.Equal(reset) {
		t.Errorf("expected reset %v, got %v", reset, status.Reset)
	}
}

func TestTracker_WindowRollRestoresBudget(t *testing.T) {
	tracker := NewTracker(60)

	// Exhaust against a window that has already elapsed
	tracker.Exhaust(time.Now().Add(-time.Minute))

	if !tracker.Allow() {
		t.Error("expected budget restored after window elapsed")
	}

	if status := tracker.Status(); status.Used != 0 {
		t.Errorf("expected used reset to 0, got %d", status.Used)
	}
}

func TestTracker_StatusSetsInitialWindow(t *testing.T) {
	tracker := NewTracker(60)

	status := tracker.Status()
	if status.Reset.IsZero() {
		t.Error("expected a window reset time to be established")
	}

	if remaining := time.Until(status.Reset); remaining > Window {
		t.Errorf("expected reset within one window, got %v", remaining)
	}
}
