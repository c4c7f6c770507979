// Package device declares the instrument contracts the sweep depends on:
// a pattern generator, a microwave synthesizer and a lock-in amplifier.
package device

import (
	"context"
	"time"

	"github.com/nvlab/pulsesweep/internal/pulse"
)

// Generator is a programmable TTL pattern generator. Programming is only
// permitted while the generator is stopped, and a BRANCH target must be an
// address that has already been emitted.
type Generator interface {
	pulse.Programmer

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
	Close() error
}

// Synthesizer is a multi-channel microwave source. Frequencies are in Hz,
// power in dBm. Channels are numbered from 1 as on the front panel.
type Synthesizer interface {
	SetFrequency(ctx context.Context, channel int, hz float64) error
	SetPower(ctx context.Context, channel int, dbm float64) error
	Enable(ctx context.Context, channel int) error
	Disable(ctx context.Context, channel int) error
	Close() error
}

// LockIn is a lock-in amplifier read as a single scalar.
type LockIn interface {
	// TimeConstant is the output filter time constant currently configured
	// on the instrument.
	TimeConstant(ctx context.Context) (time.Duration, error)

	// ReadMagnitude returns the demodulated magnitude R in volts.
	ReadMagnitude(ctx context.Context) (float64, error)

	Close() error
}
