// Package timeutil lets the sweep wait out settle times against either the
// wall clock or a simulated one.
package timeutil

import (
	"sync"
	"time"
)

// Clock is what the sweep needs from time: timestamps for points and a way
// to wait for the lock-in to settle.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// MockClock is a simulated clock. Sleep returns at once after moving the
// clock forward, so a dry run of a long sweep finishes immediately while
// point timestamps stay realistic.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(time.Duration)
}

// NewMockClock returns a clock reading start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	hook := c.onSleep
	c.mu.Unlock()

	// The hook may block or call back into the clock.
	if hook != nil {
		hook(d)
	}
}

// OnSleep installs a hook run after every Sleep; nil removes it. Tests use
// it to hold a sweep inside a settle wait.
func (c *MockClock) OnSleep(hook func(time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSleep = hook
}

// Sleeps returns a copy of every duration slept so far.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Slept is the total simulated time spent sleeping.
func (c *MockClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}
