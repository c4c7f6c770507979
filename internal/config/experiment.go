// Package config loads experiment and hardware settings for a sweep.
//
// Every field is a pointer so that a partial file only overrides what it
// names; the Get* methods supply the default for anything left out, and
// are safe to call on a nil section.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvlab/pulsesweep/internal/serialport"
)

// Experiment names accepted in the "experiment" field.
const (
	ExperimentODMR = "odmr"
	ExperimentRabi = "rabi"
)

// Generator backends accepted in hardware.generator.
const (
	GeneratorSim     = "sim"
	GeneratorSpinAPI = "spinapi"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ExperimentConfig is the root of an experiment file.
type ExperimentConfig struct {
	Experiment *string         `json:"experiment,omitempty" yaml:"experiment,omitempty"`
	ODMR       *ODMRConfig     `json:"odmr,omitempty" yaml:"odmr,omitempty"`
	Rabi       *RabiConfig     `json:"rabi,omitempty" yaml:"rabi,omitempty"`
	Hardware   *HardwareConfig `json:"hardware,omitempty" yaml:"hardware,omitempty"`
}

// ODMRConfig holds the pulsed ODMR frequency sweep parameters.
type ODMRConfig struct {
	FreqStartGHz *float64 `json:"freq_start_ghz,omitempty" yaml:"freq_start_ghz,omitempty"`
	FreqStopGHz  *float64 `json:"freq_stop_ghz,omitempty" yaml:"freq_stop_ghz,omitempty"`
	PowerDBm     *float64 `json:"power_dbm,omitempty" yaml:"power_dbm,omitempty"`
	Points       *int     `json:"points,omitempty" yaml:"points,omitempty"`
	PeriodUS     *float64 `json:"period_us,omitempty" yaml:"period_us,omitempty"` // reference period
	WidthUS      *float64 `json:"width_us,omitempty" yaml:"width_us,omitempty"`   // laser/microwave sub-pulse
	Loops        *int     `json:"loops,omitempty" yaml:"loops,omitempty"`
	Channel      *int     `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// RabiConfig holds the Rabi pulse-length sweep parameters.
type RabiConfig struct {
	FrequencyMHz *float64 `json:"frequency_mhz,omitempty" yaml:"frequency_mhz,omitempty"`
	PowerDBm     *float64 `json:"power_dbm,omitempty" yaml:"power_dbm,omitempty"`
	Repeats      *int     `json:"repeats,omitempty" yaml:"repeats,omitempty"`
	MaxTauUS     *float64 `json:"max_tau_us,omitempty" yaml:"max_tau_us,omitempty"`
	MinPadUS     *float64 `json:"min_pad_us,omitempty" yaml:"min_pad_us,omitempty"`
	LaserUS      *float64 `json:"laser_us,omitempty" yaml:"laser_us,omitempty"`
	Points       *int     `json:"points,omitempty" yaml:"points,omitempty"`
	Loops        *int     `json:"loops,omitempty" yaml:"loops,omitempty"`
	FixedPeriod  *bool    `json:"fixed_period,omitempty" yaml:"fixed_period,omitempty"`
	Channel      *int     `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// HardwareConfig selects and configures the instruments.
type HardwareConfig struct {
	Generator        *string                 `json:"generator,omitempty" yaml:"generator,omitempty"`
	Board            *int                    `json:"board,omitempty" yaml:"board,omitempty"`
	ClockMHz         *float64                `json:"clock_mhz,omitempty" yaml:"clock_mhz,omitempty"`
	SynthPort        *string                 `json:"synth_port,omitempty" yaml:"synth_port,omitempty"`
	SynthSerial      *serialport.PortOptions `json:"synth_serial,omitempty" yaml:"synth_serial,omitempty"`
	LockInPort       *string                 `json:"lockin_port,omitempty" yaml:"lockin_port,omitempty"`
	LockInSerial     *serialport.PortOptions `json:"lockin_serial,omitempty" yaml:"lockin_serial,omitempty"`
	MinInstructionNS *int64                  `json:"min_instruction_ns,omitempty" yaml:"min_instruction_ns,omitempty"`
	Retries          *int                    `json:"retries,omitempty" yaml:"retries,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// DefaultExperimentConfig returns a config with every field set to its
// default value.
func DefaultExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Experiment: ptrString(ExperimentODMR),
		ODMR: &ODMRConfig{
			FreqStartGHz: ptrFloat64(2.86),
			FreqStopGHz:  ptrFloat64(2.90),
			PowerDBm:     ptrFloat64(-35),
			Points:       ptrInt(61),
			PeriodUS:     ptrFloat64(250),
			WidthUS:      ptrFloat64(5),
			Loops:        ptrInt(1),
			Channel:      ptrInt(1),
		},
		Rabi: &RabiConfig{
			FrequencyMHz: ptrFloat64(2870),
			PowerDBm:     ptrFloat64(-20),
			Repeats:      ptrInt(250),
			MaxTauUS:     ptrFloat64(5),
			MinPadUS:     ptrFloat64(5),
			LaserUS:      ptrFloat64(10),
			Points:       ptrInt(31),
			Loops:        ptrInt(3),
			FixedPeriod:  ptrBool(false),
			Channel:      ptrInt(1),
		},
		Hardware: &HardwareConfig{
			Generator:        ptrString(GeneratorSim),
			Board:            ptrInt(0),
			ClockMHz:         ptrFloat64(100),
			SynthPort:        ptrString(""),
			LockInPort:       ptrString(""),
			MinInstructionNS: ptrInt64(10),
			Retries:          ptrInt(0),
		},
	}
}

// LoadExperimentConfig reads a .json, .yaml or .yml experiment file and
// validates it.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ExperimentConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set. Timing parameters are checked
// later by the pulse compiler, which knows the exact constraints.
func (c *ExperimentConfig) Validate() error {
	switch name := c.GetExperiment(); name {
	case ExperimentODMR, ExperimentRabi:
	default:
		return fmt.Errorf("unknown experiment %q (want %q or %q)", name, ExperimentODMR, ExperimentRabi)
	}
	if err := c.ODMR.Validate(); err != nil {
		return fmt.Errorf("odmr: %w", err)
	}
	if err := c.Rabi.Validate(); err != nil {
		return fmt.Errorf("rabi: %w", err)
	}
	if err := c.Hardware.Validate(); err != nil {
		return fmt.Errorf("hardware: %w", err)
	}
	return nil
}

// GetExperiment returns the experiment name or the default.
func (c *ExperimentConfig) GetExperiment() string {
	if c == nil || c.Experiment == nil || *c.Experiment == "" {
		return ExperimentODMR
	}
	return strings.ToLower(*c.Experiment)
}

func checkCounts(points, loops, channel int) error {
	if points < 1 {
		return fmt.Errorf("points must be at least 1, got %d", points)
	}
	if loops < 1 {
		return fmt.Errorf("loops must be at least 1, got %d", loops)
	}
	if channel != 1 && channel != 2 {
		return fmt.Errorf("channel must be 1 or 2, got %d", channel)
	}
	return nil
}

// Validate checks the ODMR section.
func (c *ODMRConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.GetFreqStartGHz() <= 0 || c.GetFreqStopGHz() <= 0 {
		return fmt.Errorf("frequencies must be positive, got %g..%g GHz", c.GetFreqStartGHz(), c.GetFreqStopGHz())
	}
	return checkCounts(c.GetPoints(), c.GetLoops(), c.GetChannel())
}

// GetFreqStartGHz returns the freq_start_ghz value or the default.
func (c *ODMRConfig) GetFreqStartGHz() float64 {
	if c == nil || c.FreqStartGHz == nil {
		return 2.86
	}
	return *c.FreqStartGHz
}

// GetFreqStopGHz returns the freq_stop_ghz value or the default.
func (c *ODMRConfig) GetFreqStopGHz() float64 {
	if c == nil || c.FreqStopGHz == nil {
		return 2.90
	}
	return *c.FreqStopGHz
}

// GetPowerDBm returns the power_dbm value or the default.
func (c *ODMRConfig) GetPowerDBm() float64 {
	if c == nil || c.PowerDBm == nil {
		return -35
	}
	return *c.PowerDBm
}

// GetPoints returns the points value or the default.
func (c *ODMRConfig) GetPoints() int {
	if c == nil || c.Points == nil {
		return 61
	}
	return *c.Points
}

// GetPeriodUS returns the period_us value or the default.
func (c *ODMRConfig) GetPeriodUS() float64 {
	if c == nil || c.PeriodUS == nil {
		return 250
	}
	return *c.PeriodUS
}

// GetWidthUS returns the width_us value or the default.
func (c *ODMRConfig) GetWidthUS() float64 {
	if c == nil || c.WidthUS == nil {
		return 5
	}
	return *c.WidthUS
}

// GetLoops returns the loops value or the default.
func (c *ODMRConfig) GetLoops() int {
	if c == nil || c.Loops == nil {
		return 1
	}
	return *c.Loops
}

// GetChannel returns the synthesizer channel or the default.
func (c *ODMRConfig) GetChannel() int {
	if c == nil || c.Channel == nil {
		return 1
	}
	return *c.Channel
}

// Validate checks the Rabi section.
func (c *RabiConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.GetFrequencyMHz() <= 0 {
		return fmt.Errorf("frequency_mhz must be positive, got %g", c.GetFrequencyMHz())
	}
	if c.GetRepeats() < 1 {
		return fmt.Errorf("repeats must be at least 1, got %d", c.GetRepeats())
	}
	if c.GetMaxTauUS() <= 0 {
		return fmt.Errorf("max_tau_us must be positive, got %g", c.GetMaxTauUS())
	}
	return checkCounts(c.GetPoints(), c.GetLoops(), c.GetChannel())
}

// GetFrequencyMHz returns the frequency_mhz value or the default.
func (c *RabiConfig) GetFrequencyMHz() float64 {
	if c == nil || c.FrequencyMHz == nil {
		return 2870
	}
	return *c.FrequencyMHz
}

// GetPowerDBm returns the power_dbm value or the default.
func (c *RabiConfig) GetPowerDBm() float64 {
	if c == nil || c.PowerDBm == nil {
		return -20
	}
	return *c.PowerDBm
}

// GetRepeats returns the repeats value or the default.
func (c *RabiConfig) GetRepeats() int {
	if c == nil || c.Repeats == nil {
		return 250
	}
	return *c.Repeats
}

// GetMaxTauUS returns the max_tau_us value or the default.
func (c *RabiConfig) GetMaxTauUS() float64 {
	if c == nil || c.MaxTauUS == nil {
		return 5
	}
	return *c.MaxTauUS
}

// GetMinPadUS returns the min_pad_us value or the default.
func (c *RabiConfig) GetMinPadUS() float64 {
	if c == nil || c.MinPadUS == nil {
		return 5
	}
	return *c.MinPadUS
}

// GetLaserUS returns the laser_us value or the default.
func (c *RabiConfig) GetLaserUS() float64 {
	if c == nil || c.LaserUS == nil {
		return 10
	}
	return *c.LaserUS
}

// GetPoints returns the points value or the default.
func (c *RabiConfig) GetPoints() int {
	if c == nil || c.Points == nil {
		return 31
	}
	return *c.Points
}

// GetLoops returns the loops value or the default.
func (c *RabiConfig) GetLoops() int {
	if c == nil || c.Loops == nil {
		return 3
	}
	return *c.Loops
}

// GetFixedPeriod returns the fixed_period value or the default.
func (c *RabiConfig) GetFixedPeriod() bool {
	if c == nil || c.FixedPeriod == nil {
		return false
	}
	return *c.FixedPeriod
}

// GetChannel returns the synthesizer channel or the default.
func (c *RabiConfig) GetChannel() int {
	if c == nil || c.Channel == nil {
		return 1
	}
	return *c.Channel
}

// Validate checks the hardware section.
func (c *HardwareConfig) Validate() error {
	if c == nil {
		return nil
	}
	switch g := c.GetGenerator(); g {
	case GeneratorSim, GeneratorSpinAPI:
	default:
		return fmt.Errorf("unknown generator %q (want %q or %q)", g, GeneratorSim, GeneratorSpinAPI)
	}
	if c.GetMinInstructionNS() < 0 {
		return fmt.Errorf("min_instruction_ns must be non-negative, got %d", c.GetMinInstructionNS())
	}
	if c.GetRetries() < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", c.GetRetries())
	}
	if c.GetClockMHz() <= 0 {
		return fmt.Errorf("clock_mhz must be positive, got %g", c.GetClockMHz())
	}
	if _, err := c.GetSynthSerial().Normalize(); err != nil {
		return fmt.Errorf("synth_serial: %w", err)
	}
	if _, err := c.GetLockInSerial().Normalize(); err != nil {
		return fmt.Errorf("lockin_serial: %w", err)
	}
	if c.GetGenerator() != GeneratorSim {
		if c.GetSynthPort() == "" {
			return fmt.Errorf("synth_port is required with the %s generator", c.GetGenerator())
		}
		if c.GetLockInPort() == "" {
			return fmt.Errorf("lockin_port is required with the %s generator", c.GetGenerator())
		}
	}
	return nil
}

// GetGenerator returns the generator backend or the default.
func (c *HardwareConfig) GetGenerator() string {
	if c == nil || c.Generator == nil || *c.Generator == "" {
		return GeneratorSim
	}
	return strings.ToLower(*c.Generator)
}

// GetBoard returns the board index or the default.
func (c *HardwareConfig) GetBoard() int {
	if c == nil || c.Board == nil {
		return 0
	}
	return *c.Board
}

// GetClockMHz returns the generator core clock or the default.
func (c *HardwareConfig) GetClockMHz() float64 {
	if c == nil || c.ClockMHz == nil {
		return 100
	}
	return *c.ClockMHz
}

// GetSynthPort returns the synthesizer serial device path.
func (c *HardwareConfig) GetSynthPort() string {
	if c == nil || c.SynthPort == nil {
		return ""
	}
	return *c.SynthPort
}

// GetSynthSerial returns the synthesizer port options. Zero fields are
// filled in by serialport.PortOptions.Normalize.
func (c *HardwareConfig) GetSynthSerial() serialport.PortOptions {
	if c == nil || c.SynthSerial == nil {
		return serialport.PortOptions{}
	}
	return *c.SynthSerial
}

// GetLockInPort returns the lock-in serial device path.
func (c *HardwareConfig) GetLockInPort() string {
	if c == nil || c.LockInPort == nil {
		return ""
	}
	return *c.LockInPort
}

// GetLockInSerial returns the lock-in port options.
func (c *HardwareConfig) GetLockInSerial() serialport.PortOptions {
	if c == nil || c.LockInSerial == nil {
		return serialport.PortOptions{}
	}
	return *c.LockInSerial
}

// GetMinInstructionNS returns the shortest instruction the generator
// accepts, in nanoseconds.
func (c *HardwareConfig) GetMinInstructionNS() int64 {
	if c == nil || c.MinInstructionNS == nil {
		return 10
	}
	return *c.MinInstructionNS
}

// GetRetries returns the per-point hardware retry count or the default.
func (c *HardwareConfig) GetRetries() int {
	if c == nil || c.Retries == nil {
		return 0
	}
	return *c.Retries
}
