package experiment

import (
	"fmt"
	"time"

	"github.com/nvlab/pulsesweep/internal/pulse"
	"github.com/nvlab/pulsesweep/internal/sweep"
	"github.com/nvlab/pulsesweep/internal/units"
)

// ODMRParams configures a pulsed ODMR frequency sweep.
type ODMRParams struct {
	StartHz  float64
	StopHz   float64
	Points   int
	Loops    int
	PowerDBm float64
	// Channel is the synthesizer output, 1 or 2. Zero means 1.
	Channel int

	// Reference period and laser/microwave sub-pulse width, in µs.
	PeriodUS float64
	WidthUS  float64

	// MinDuration is the generator's instruction floor. Zero uses the
	// compiler default.
	MinDuration time.Duration
}

// PulsedODMR sweeps the microwave frequency under a fixed duty-cycle
// program. Frequencies are visited from high to low.
type PulsedODMR struct {
	params ODMRParams
	axis   sweep.Axis
}

var _ sweep.Experiment = (*PulsedODMR)(nil)

// NewPulsedODMR validates p, including compiling the pulse program once so
// that timing errors surface before any instrument is opened.
func NewPulsedODMR(p ODMRParams) (*PulsedODMR, error) {
	if p.Channel == 0 {
		p.Channel = 1
	}
	if p.StartHz <= 0 || p.StopHz <= 0 {
		return nil, fmt.Errorf("odmr: frequencies must be positive, got %g..%g Hz", p.StartHz, p.StopHz)
	}
	values, err := sweep.Linspace(p.StartHz, p.StopHz, p.Points)
	if err != nil {
		return nil, fmt.Errorf("odmr: %w", err)
	}
	axis, err := sweep.NewAxis(values, p.Loops, true)
	if err != nil {
		return nil, fmt.Errorf("odmr: %w", err)
	}
	o := &PulsedODMR{params: p, axis: axis}
	if _, err := o.Program(p.StartHz); err != nil {
		return nil, fmt.Errorf("odmr: %w", err)
	}
	return o, nil
}

func (o *PulsedODMR) Name() string { return NameODMR }

func (o *PulsedODMR) Axis() sweep.Axis { return o.axis }

// Program compiles the duty-cycle program. It does not depend on the
// frequency but is rebuilt for every point like any other experiment.
func (o *PulsedODMR) Program(float64) (pulse.Program, error) {
	spec := pulse.DutyCycleSpec{Period: o.params.PeriodUS, Width: o.params.WidthUS}
	return pulse.Compile(spec, pulse.WithMinDuration(o.params.MinDuration))
}

func (o *PulsedODMR) Tone(hz float64) sweep.Tone {
	return sweep.Tone{Channel: o.params.Channel, FrequencyHz: hz, PowerDBm: o.params.PowerDBm}
}

func (o *PulsedODMR) Fields() (axis, reading string) { return "freq_Hz", "contrast" }

func (o *PulsedODMR) FormatPoint(hz, reading float64) string {
	return fmt.Sprintf("f = %.6f GHz → R = %.4f V", units.FromHz(hz, units.GHz), reading)
}
