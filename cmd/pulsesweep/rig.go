package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/nvlab/pulsesweep/internal/config"
	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/device/sim"
	"github.com/nvlab/pulsesweep/internal/device/spinapi"
	"github.com/nvlab/pulsesweep/internal/device/sr830"
	"github.com/nvlab/pulsesweep/internal/device/windfreak"
	"github.com/nvlab/pulsesweep/internal/sweep"
)

// Simulated NV centre used by -sim runs.
const (
	simTimeConstant = 100 * time.Millisecond
	simBaselineV    = 0.010
	simContrast     = 0.3
	simResonanceHz  = 2.870e9
	simLinewidthHz  = 6e6
	simRabiHz       = 2.5e6
)

// simRig is a simulated instrument set whose lock-in reading follows the
// tone and program the sweep has loaded.
type simRig struct {
	rabi  bool
	gen   *sim.Generator
	synth *sim.Synthesizer
	lock  *sim.LockIn
}

func newSimRig(experiment string, channel int) *simRig {
	r := &simRig{
		rabi:  experiment == config.ExperimentRabi,
		gen:   sim.NewGenerator(),
		synth: sim.NewSynthesizer(),
		lock:  sim.NewLockIn(simTimeConstant),
	}
	r.lock.SetSource(func(int) float64 { return r.reading(channel) })
	return r
}

// reading models a Lorentzian ODMR dip in the synthesizer frequency and a
// Rabi oscillation in the microwave pulse length of the loaded program.
func (r *simRig) reading(channel int) float64 {
	ch := r.synth.Channel(channel)
	if !ch.Enabled {
		return simBaselineV
	}
	detuning := (ch.Frequency - simResonanceHz) / (simLinewidthHz / 2)
	dip := simContrast / (1 + detuning*detuning)

	prog := r.gen.Program()
	if !r.rabi || len(prog) < 2 {
		return simBaselineV * (1 - dip)
	}
	// Block programs carry the microwave pulse second.
	tau := prog[1].Duration.Seconds()
	s := math.Sin(math.Pi * simRabiHz * tau)
	return simBaselineV * (1 - dip*s*s)
}

func (r *simRig) opener() sweep.Opener {
	return sweep.OpenerFunc(func(context.Context) (*sweep.Session, error) {
		return &sweep.Session{Generator: r.gen, Synthesizer: r.synth, LockIn: r.lock}, nil
	})
}

// hardwareOpener connects the instruments named in hw. Each instrument is
// opened only when a sweep starts.
func hardwareOpener(hw *config.HardwareConfig, logger *log.Logger) (sweep.Opener, error) {
	if hw.GetGenerator() != config.GeneratorSpinAPI {
		return nil, fmt.Errorf("hardware.generator %q has no hardware driver; use -sim", hw.GetGenerator())
	}
	if !spinapi.Available {
		return nil, fmt.Errorf("hardware.generator %q: built without -tags spinapi; use -sim", hw.GetGenerator())
	}
	return sweep.Openers{
		Generator: func(context.Context) (device.Generator, error) {
			g, err := spinapi.Open(spinapi.Options{Board: hw.GetBoard(), ClockMHz: hw.GetClockMHz()})
			if err != nil {
				return nil, err
			}
			return g, nil
		},
		Synthesizer: func(ctx context.Context) (device.Synthesizer, error) {
			s, err := windfreak.Connect(ctx, hw.GetSynthPort(), windfreak.Options{
				Port:   hw.GetSynthSerial(),
				Logger: logger,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		LockIn: func(ctx context.Context) (device.LockIn, error) {
			l, err := sr830.Connect(ctx, hw.GetLockInPort(), sr830.Options{
				Port:   hw.GetLockInSerial(),
				Logger: logger,
			})
			if err != nil {
				return nil, err
			}
			return l, nil
		},
	}, nil
}
