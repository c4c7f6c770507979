// Package sr830 reads a Stanford Research SR830 lock-in amplifier over
// RS-232.
package sr830

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/serialport"
)

// timeConstants maps the OFLT index to the filter time constant.
var timeConstants = []time.Duration{
	10 * time.Microsecond, 30 * time.Microsecond,
	100 * time.Microsecond, 300 * time.Microsecond,
	1 * time.Millisecond, 3 * time.Millisecond,
	10 * time.Millisecond, 30 * time.Millisecond,
	100 * time.Millisecond, 300 * time.Millisecond,
	1 * time.Second, 3 * time.Second,
	10 * time.Second, 30 * time.Second,
	100 * time.Second, 300 * time.Second,
	1000 * time.Second, 3000 * time.Second,
	10000 * time.Second, 30000 * time.Second,
}

// outputR is the OUTP? parameter number for the magnitude.
const outputR = 3

// Options configures Connect.
type Options struct {
	Port serialport.PortOptions
	// Open defaults to serialport.Open.
	Open   serialport.Opener
	Logger *log.Logger
}

// LockIn is a connected SR830.
type LockIn struct {
	conn   *serialport.LineConn
	logger *log.Logger
}

var _ device.LockIn = (*LockIn)(nil)

// Connect opens the lock-in at path, directs its replies to the RS-232
// port and logs its identity.
func Connect(ctx context.Context, path string, opts Options) (*LockIn, error) {
	open := opts.Open
	if open == nil {
		open = serialport.Open
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	port, err := open(path, opts.Port)
	if err != nil {
		return nil, device.Wrap(device.NameLockIn, "connect", err)
	}
	l := &LockIn{conn: serialport.NewLineConn(port, "\r"), logger: logger}

	if err := l.conn.Command(ctx, "OUTX 0"); err != nil {
		return nil, multierr.Append(device.Wrap(device.NameLockIn, "select RS-232 output", err), port.Close())
	}
	id, err := l.conn.Query(ctx, "*IDN?")
	if err != nil {
		return nil, multierr.Append(device.Wrap(device.NameLockIn, "identify", err), port.Close())
	}
	logger.Printf("[lockin] connected on %s: %s", path, id)
	return l, nil
}

// TimeConstant queries the output filter time constant.
func (l *LockIn) TimeConstant(ctx context.Context) (time.Duration, error) {
	reply, err := l.conn.Query(ctx, "OFLT?")
	if err != nil {
		return 0, device.Wrap(device.NameLockIn, "time constant", err)
	}
	idx, err := strconv.Atoi(reply)
	if err != nil {
		return 0, device.Wrap(device.NameLockIn, "time constant", fmt.Errorf("parse %q: %w", reply, err))
	}
	if idx < 0 || idx >= len(timeConstants) {
		return 0, device.Wrap(device.NameLockIn, "time constant", fmt.Errorf("index %d out of range", idx))
	}
	return timeConstants[idx], nil
}

// ReadMagnitude reads R in volts.
func (l *LockIn) ReadMagnitude(ctx context.Context) (float64, error) {
	return l.readOutput(ctx, "read R", outputR)
}

func (l *LockIn) readOutput(ctx context.Context, op string, param int) (float64, error) {
	reply, err := l.conn.Query(ctx, fmt.Sprintf("OUTP? %d", param))
	if err != nil {
		return 0, device.Wrap(device.NameLockIn, op, err)
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, device.Wrap(device.NameLockIn, op, fmt.Errorf("parse %q: %w", reply, err))
	}
	return v, nil
}

// Close releases the serial port.
func (l *LockIn) Close() error {
	if err := l.conn.Close(); err != nil {
		return device.Wrap(device.NameLockIn, "close", err)
	}
	return nil
}
