package clock

import (
	"testing"
	"time"
)

// fixedClock is a minimal Clock returning a preset time.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// =============================================================================
// RealClock tests
// =============================================================================

func TestNewRealClock(t *testing.T) {
	clock := NewRealClock()
	if clock == nil {
		t.Fatal("NewRealClock() should not return nil")
	}
}

func TestRealClock_Now(t *testing.T) {
	clock := NewRealClock()

	before := time.Now()
	got := clock.Now()
	after := time.Now()

	if got.Before(before) {
		t.Errorf("clock.Now() returned %v which is before %v", got, before)
	}
	if got.After(after) {
		t.Errorf("clock.Now() returned %v which is after %v", got, after)
	}
}

func TestRealClock_Now_Advances(t *testing.T) {
	clock := NewRealClock()

	first := clock.Now()
	time.Sleep(10 * time.Millisecond)
	second := clock.Now()

	if !second.After(first) {
		t.Errorf("clock.Now() should advance over time: first=%v, second=%v", first, second)
	}
}

// =============================================================================
// Since tests
// =============================================================================

func TestSince(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: start.Add(1500 * time.Millisecond)}

	if got := Since(clock, start); got != 1500*time.Millisecond {
		t.Errorf("Since() = %v, want 1.5s", got)
	}
}

// =============================================================================
// Interface compliance tests
// =============================================================================

func TestRealClock_ImplementsClock(t *testing.T) {
	var _ Clock = (*RealClock)(nil)
}
