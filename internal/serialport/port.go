// Package serialport opens instrument serial lines and exchanges
// terminated text commands over them.
package serialport

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens the port at path. Drivers take an Opener so tests can hand
// them a TestableSerialPort.
type Opener func(path string, opts PortOptions) (SerialPorter, error)

// Open opens a real serial port at path with the given options and applies
// the read timeout.
func Open(path string, opts PortOptions) (SerialPorter, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return nil, fmt.Errorf("serial options for %s: %w", path, err)
	}
	mode, err := norm.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(norm.ReadTimeout()); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	return port, nil
}

// ListPorts returns the names of serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
