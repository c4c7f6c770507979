// Package experiment holds the measurements the sweep runner can drive.
// Each one decides the axis, the pulse program and the synthesizer tone
// for a point; the runner does the rest.
package experiment

import (
	"fmt"
	"time"

	"github.com/nvlab/pulsesweep/internal/config"
	"github.com/nvlab/pulsesweep/internal/sweep"
	"github.com/nvlab/pulsesweep/internal/units"
)

// Experiment names, as used in config files and stored runs.
const (
	NameODMR = config.ExperimentODMR
	NameRabi = config.ExperimentRabi
)

// Names lists the experiments FromConfig can build.
func Names() []string {
	return []string{NameODMR, NameRabi}
}

// FromConfig builds the experiment cfg selects.
func FromConfig(cfg *config.ExperimentConfig) (sweep.Experiment, error) {
	if cfg == nil {
		cfg = &config.ExperimentConfig{}
	}
	minDuration := time.Duration(cfg.Hardware.GetMinInstructionNS()) * time.Nanosecond

	switch name := cfg.GetExperiment(); name {
	case NameODMR:
		c := cfg.ODMR
		return NewPulsedODMR(ODMRParams{
			StartHz:     units.GHzToHz(c.GetFreqStartGHz()),
			StopHz:      units.GHzToHz(c.GetFreqStopGHz()),
			Points:      c.GetPoints(),
			Loops:       c.GetLoops(),
			PowerDBm:    c.GetPowerDBm(),
			Channel:     c.GetChannel(),
			PeriodUS:    c.GetPeriodUS(),
			WidthUS:     c.GetWidthUS(),
			MinDuration: minDuration,
		})
	case NameRabi:
		c := cfg.Rabi
		return NewRabi(RabiParams{
			FrequencyHz: units.MHzToHz(c.GetFrequencyMHz()),
			PowerDBm:    c.GetPowerDBm(),
			Channel:     c.GetChannel(),
			MaxTauUS:    c.GetMaxTauUS(),
			MinPadUS:    c.GetMinPadUS(),
			LaserUS:     c.GetLaserUS(),
			Repeats:     c.GetRepeats(),
			Points:      c.GetPoints(),
			Loops:       c.GetLoops(),
			FixedPeriod: c.GetFixedPeriod(),
			MinDuration: minDuration,
		})
	default:
		return nil, fmt.Errorf("unknown experiment %q (known: %v)", name, Names())
	}
}
