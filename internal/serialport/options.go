package serialport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the factory RS-232 setting of the lock-in.
const DefaultBaudRate = 9600

// DefaultReadTimeout bounds how long a query waits for a reply line.
const DefaultReadTimeout = 2 * time.Second

var standardBaudRates = map[int]bool{
	110: true, 300: true, 600: true, 1200: true, 2400: true, 4800: true,
	9600: true, 14400: true, 19200: true, 28800: true, 38400: true,
	57600: true, 115200: true, 128000: true, 256000: true,
}

// PortOptions describes the serial connection parameters used when opening
// an instrument port. They are read straight from the experiment config.
type PortOptions struct {
	BaudRate      int    `json:"baud_rate" yaml:"baud_rate"`
	DataBits      int    `json:"data_bits" yaml:"data_bits"`
	StopBits      int    `json:"stop_bits" yaml:"stop_bits"`
	Parity        string `json:"parity" yaml:"parity"`
	ReadTimeoutMS int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
}

var parities = map[string]serial.Parity{
	"N": serial.NoParity, "NONE": serial.NoParity,
	"E": serial.EvenParity, "EVEN": serial.EvenParity,
	"O": serial.OddParity, "ODD": serial.OddParity,
}

// Normalize fills in defaults and rejects settings the instruments cannot
// use. Parity is reduced to its one-letter form.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if !standardBaudRates[o.BaudRate] {
		return o, fmt.Errorf("invalid baud rate %d", o.BaudRate)
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	parity := strings.ToUpper(strings.TrimSpace(o.Parity))
	if parity == "" {
		parity = "N"
	}
	if _, ok := parities[parity]; !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = parity[:1]

	switch {
	case o.ReadTimeoutMS < 0:
		return o, fmt.Errorf("invalid read timeout %dms", o.ReadTimeoutMS)
	case o.ReadTimeoutMS == 0:
		o.ReadTimeoutMS = int(DefaultReadTimeout / time.Millisecond)
	}
	return o, nil
}

// ReadTimeout is the configured reply timeout, or DefaultReadTimeout.
func (o PortOptions) ReadTimeout() time.Duration {
	if o.ReadTimeoutMS <= 0 {
		return DefaultReadTimeout
	}
	return time.Duration(o.ReadTimeoutMS) * time.Millisecond
}

// SerialMode returns the go.bug.st/serial mode for the normalized options.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	stop := serial.OneStopBit
	if n.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		StopBits: stop,
		Parity:   parities[n.Parity],
	}, nil
}
