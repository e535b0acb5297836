package realtime

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(3, 10*time.Second)
	t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !r.Allow(t0.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("event %d rejected inside the limit", i)
		}
	}
	if r.Allow(t0.Add(3 * time.Second)) {
		t.Fatalf("event over the limit allowed")
	}

	// Once the oldest event ages out of the window, room frees up.
	if !r.Allow(t0.Add(11 * time.Second)) {
		t.Fatalf("event rejected after the window slid")
	}
}

func TestRateLimiter_DefaultsOnInvalidInput(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(0, 0)
	if !r.Allow(time.Now()) {
		t.Fatalf("limiter with defaults rejected the first event")
	}
}
