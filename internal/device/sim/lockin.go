package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nvlab/pulsesweep/internal/device"
)

// LockIn simulates a lock-in amplifier. Readings come from Source, which is
// called with the zero-based read count; the default returns 0.
type LockIn struct {
	mu       sync.Mutex
	tc       time.Duration
	source   func(n int) float64
	reads    int
	closed   bool
	failures []error
}

// NewLockIn returns a lock-in with the given filter time constant.
func NewLockIn(tc time.Duration) *LockIn {
	return &LockIn{tc: tc, source: func(int) float64 { return 0 }}
}

var _ device.LockIn = (*LockIn)(nil)

// SetSource replaces the reading generator.
func (l *LockIn) SetSource(fn func(n int) float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn != nil {
		l.source = fn
	}
}

// FailReads queues errors to be returned by subsequent ReadMagnitude calls,
// one per call, before readings resume.
func (l *LockIn) FailReads(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, errs...)
}

func (l *LockIn) TimeConstant(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, device.Wrap(device.NameLockIn, "time constant", errors.New("handle closed"))
	}
	return l.tc, nil
}

func (l *LockIn) ReadMagnitude(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, device.Wrap(device.NameLockIn, "read R", errors.New("handle closed"))
	}
	if len(l.failures) > 0 {
		err := l.failures[0]
		l.failures = l.failures[1:]
		return 0, device.Wrap(device.NameLockIn, "read R", err)
	}
	v := l.source(l.reads)
	l.reads++
	return v, nil
}

func (l *LockIn) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Reads returns the number of successful readings.
func (l *LockIn) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Closed reports whether Close was called.
func (l *LockIn) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
