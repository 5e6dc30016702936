package ratelimit

import (
	"sync"
	"time"
)

// Window is the rolling period over which GitHub enforces its quota
const Window = time.Hour

// Tracker keeps an advisory count of the remaining request budget against a
// rolling window. It is advisory only: the upstream API is the ground truth
// and can reject requests even when the local count believes budget remains
// (clock drift, quota shared with other processes). Upstream rate-limit
// headers, when seen, override the local count.
type Tracker struct {
	mu          sync.Mutex
	limit       int
	used        int
	windowReset time.Time
}

// Status is a read-only snapshot for display
type Status struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// NewTracker creates a tracker with the given hourly budget
// (60 unauthenticated, 5000 authenticated).
func NewTracker(limit int) *Tracker {
	return &Tracker{limit: limit}
}

// Allow reports whether the current window has remaining budget
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollWindow(time.Now())

	return t.used < t.limit
}

// Record updates the tracker from upstream rate-limit headers
// (X-RateLimit-Remaining / X-RateLimit-Reset).
func (t *Tracker) Record(remaining int, reset time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}

	t.used = t.limit - remaining
	if t.used < 0 {
		t.used = 0
	}

	if !reset.IsZero() {
		t.windowReset = reset
	}
}

// RecordLocal increments the local counter pessimistically, for responses
// that carried no rate-limit headers.
func (t *Tracker) RecordLocal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollWindow(time.Now())
	t.used++
}

// Exhaust clamps the remaining budget to zero after an upstream 403/429
// rejection, adopting the upstream-reported reset time when available.
func (t *Tracker) Exhaust(reset time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.used = t.limit
	if !reset.IsZero() {
		t.windowReset = reset
	}
}

// Status returns remaining, limit, and reset time for display
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollWindow(time.Now())

	return Status{
		Limit:     t.limit,
		Used:      t.used,
		Remaining: t.limit - t.used,
		Reset:     t.windowReset,
	}
}

// rollWindow resets the counter when the window has elapsed.
// Callers must hold the lock.
func (t *Tracker) rollWindow(now time.Time) {
	if t.windowReset.IsZero() {
		t.windowReset = now.Add(Window)
		return
	}

	if now.After(t.windowReset) {
		t.used = 0
		t.windowReset = now.Add(Window)
	}
}
