package timeutil

import (
	"testing"
	"time"
)

var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
)

func TestRealClock(t *testing.T) {
	var clock RealClock
	start := clock.Now()
	clock.Sleep(5 * time.Millisecond)
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Sleep returned after %v, want at least 5ms", elapsed)
	}
}

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Sleep(1500 * time.Millisecond)
	clock.Sleep(time.Second)

	if got := clock.Now().Sub(start); got != 2500*time.Millisecond {
		t.Errorf("clock advanced %v, want 2.5s", got)
	}
	if got := clock.Slept(); got != 2500*time.Millisecond {
		t.Errorf("Slept() = %v, want 2.5s", got)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 1500*time.Millisecond || sleeps[1] != time.Second {
		t.Fatalf("Sleeps() = %v", sleeps)
	}
	sleeps[0] = 0
	if clock.Sleeps()[0] != 1500*time.Millisecond {
		t.Error("Sleeps() shares its backing array")
	}
}

func TestMockClock_OnSleep(t *testing.T) {
	clock := NewMockClock(time.Time{})

	var seen []time.Duration
	clock.OnSleep(func(d time.Duration) {
		_ = clock.Now() // must not deadlock
		seen = append(seen, d)
	})
	clock.Sleep(time.Second)
	clock.OnSleep(nil)
	clock.Sleep(2 * time.Second)

	if len(seen) != 1 || seen[0] != time.Second {
		t.Errorf("hook saw %v, want [1s]", seen)
	}
}
