package experiment

import (
	"fmt"
	"time"

	"github.com/nvlab/pulsesweep/internal/pulse"
	"github.com/nvlab/pulsesweep/internal/sweep"
	"github.com/nvlab/pulsesweep/internal/units"
)

// MinTauUS is the shortest microwave pulse a Rabi sweep starts from.
const MinTauUS = 0.05

// RabiParams configures a Rabi pulse-length sweep.
type RabiParams struct {
	FrequencyHz float64
	PowerDBm    float64
	Channel     int // 1 or 2; zero means 1

	// Block timing in µs. Tau runs from MinTauUS to MaxTauUS.
	MaxTauUS float64
	MinPadUS float64
	LaserUS  float64
	Repeats  int

	Points int
	Loops  int

	// FixedPeriod stretches the dark pad so every block lasts
	// LaserUS + MaxTauUS + MinPadUS whatever the pulse length.
	FixedPeriod bool

	MinDuration time.Duration
}

// Rabi sweeps the microwave pulse length at a fixed frequency.
type Rabi struct {
	params RabiParams
	axis   sweep.Axis
}

var _ sweep.Experiment = (*Rabi)(nil)

// NewRabi validates p and compiles the programs for the shortest and
// longest pulse so that timing errors surface before any instrument is
// opened.
func NewRabi(p RabiParams) (*Rabi, error) {
	if p.Channel == 0 {
		p.Channel = 1
	}
	if p.FrequencyHz <= 0 {
		return nil, fmt.Errorf("rabi: frequency must be positive, got %g Hz", p.FrequencyHz)
	}
	if p.MaxTauUS < MinTauUS {
		return nil, fmt.Errorf("rabi: max tau %g µs is below the minimum %g µs", p.MaxTauUS, MinTauUS)
	}
	values, err := sweep.Linspace(MinTauUS, p.MaxTauUS, p.Points)
	if err != nil {
		return nil, fmt.Errorf("rabi: %w", err)
	}
	// The generator works in whole nanoseconds; snap the axis to that grid
	// so every value it reports is the pulse length actually played.
	for i, v := range values {
		values[i] = units.SnapMicroseconds(v)
	}
	axis, err := sweep.NewAxis(values, p.Loops, false)
	if err != nil {
		return nil, fmt.Errorf("rabi: %w", err)
	}
	r := &Rabi{params: p, axis: axis}
	for _, tau := range []float64{values[0], values[len(values)-1]} {
		if _, err := r.Program(tau); err != nil {
			return nil, fmt.Errorf("rabi: %w", err)
		}
	}
	return r, nil
}

func (r *Rabi) Name() string { return NameRabi }

func (r *Rabi) Axis() sweep.Axis { return r.axis }

// Pad returns the dark time after a pulse of tau µs.
func (r *Rabi) Pad(tau float64) float64 {
	if !r.params.FixedPeriod {
		return r.params.MinPadUS
	}
	return (r.params.MaxTauUS + r.params.MinPadUS) - tau
}

// Program compiles the block program for a pulse of tau µs. In fixed-period
// mode a tau longer than MaxTauUS leaves a negative pad and is rejected by
// the compiler.
func (r *Rabi) Program(tau float64) (pulse.Program, error) {
	spec := pulse.BlockSpec{
		Init:    r.params.LaserUS,
		Tau:     tau,
		Pad:     r.Pad(tau),
		Repeats: r.params.Repeats,
	}
	return pulse.Compile(spec, pulse.WithMinDuration(r.params.MinDuration))
}

func (r *Rabi) Tone(float64) sweep.Tone {
	return sweep.Tone{Channel: r.params.Channel, FrequencyHz: r.params.FrequencyHz, PowerDBm: r.params.PowerDBm}
}

func (r *Rabi) Fields() (axis, reading string) { return "tau_us", "R_V" }

func (r *Rabi) FormatPoint(tau, reading float64) string {
	return fmt.Sprintf("%.6f us → R = %.4f V", tau, reading)
}
