package timeutil

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	for i := 0; i < 3; i++ {
		if now := clock.Now(); !now.Equal(fixedTime) {
			t.Errorf("call %d: got %v, want %v", i, now, fixedTime)
		}
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	newTime := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(newTime)
	clock.Advance(90 * time.Second)

	want := newTime.Add(90 * time.Second)
	if !clock.Now().Equal(want) {
		t.Errorf("got %v, want %v", clock.Now(), want)
	}
	if d := clock.Since(newTime); d != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", d)
	}
}

func TestSteppingClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(start, time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	if !first.Equal(start) {
		t.Errorf("first Now() = %v, want %v", first, start)
	}
	if got := second.Sub(first); got != time.Millisecond {
		t.Errorf("step = %v, want 1ms", got)
	}
	// Since does not step.
	if d := clock.Since(start); d != 2*time.Millisecond {
		t.Errorf("Since() = %v, want 2ms", d)
	}
}

func TestSteppingClockConcurrent(t *testing.T) {
	clock := NewSteppingClock(time.Unix(0, 0), time.Second)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for ts := range seen {
		unique[ts.Unix()] = true
	}
	if len(unique) != 100 {
		t.Errorf("got %d distinct timestamps, want 100", len(unique))
	}
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = (*MockClock)(nil)
}
