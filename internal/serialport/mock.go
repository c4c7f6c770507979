package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

var errPortClosed = errors.New("serial port closed")

// TestableSerialPort is an in-memory instrument link. Each Write is recorded
// and handed to Responder, whose return value becomes readable. An
// exhausted reply buffer reads as (0, nil), which is how go.bug.st/serial
// reports an expired read timeout.
type TestableSerialPort struct {
	// Responder produces the instrument's reply to one write.
	Responder func(written string) string

	// WriteError fails the next Write. ShortWrite makes the next Write
	// report one byte fewer than it was given.
	WriteError error
	ShortWrite bool

	CloseError  error
	Closed      bool
	ReadTimeout time.Duration

	mu      sync.Mutex
	replies bytes.Buffer
	writes  []string
}

var _ TimeoutSerialPorter = (*TestableSerialPort)(nil)

// NewTestableSerialPort returns a port that stays silent until Responder
// is set.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{}
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Closed {
		return 0, errPortClosed
	}
	if t.replies.Len() == 0 {
		return 0, nil
	}
	return t.replies.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.Closed:
		return 0, errPortClosed
	case t.WriteError != nil:
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	cmd := string(p)
	t.writes = append(t.writes, cmd)
	if t.Responder != nil {
		t.replies.WriteString(t.Responder(cmd))
	}
	if t.ShortWrite {
		t.ShortWrite = false
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}

func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// Writes returns the payload of every successful Write, in order.
func (t *TestableSerialPort) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// Opener returns an Opener that validates the options, appends the path to
// paths when it is non-nil and hands out t.
func (t *TestableSerialPort) Opener(paths *[]string) Opener {
	return func(path string, opts PortOptions) (SerialPorter, error) {
		if paths != nil {
			*paths = append(*paths, path)
		}
		if _, err := opts.Normalize(); err != nil {
			return nil, err
		}
		return t, nil
	}
}
