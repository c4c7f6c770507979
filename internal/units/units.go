// Package units converts between the units used in config files and log
// lines (GHz, MHz, µs) and the SI values the sweep works in.
package units

import (
	"fmt"
	"math"
)

// Frequency display units.
const (
	Hz  = "Hz"
	KHz = "kHz"
	MHz = "MHz"
	GHz = "GHz"
)

var frequencyScale = map[string]float64{
	Hz:  1,
	KHz: 1e3,
	MHz: 1e6,
	GHz: 1e9,
}

// ValidFrequencyUnits lists the accepted frequency units.
var ValidFrequencyUnits = []string{Hz, KHz, MHz, GHz}

// IsValidFrequencyUnit reports whether unit is one of ValidFrequencyUnits.
func IsValidFrequencyUnit(unit string) bool {
	_, ok := frequencyScale[unit]
	return ok
}

// ToHz converts a frequency in unit to hertz.
func ToHz(v float64, unit string) (float64, error) {
	scale, ok := frequencyScale[unit]
	if !ok {
		return 0, fmt.Errorf("unknown frequency unit %q (valid: %v)", unit, ValidFrequencyUnits)
	}
	return v * scale, nil
}

// FromHz converts hertz to unit. Unknown units return hz unchanged.
func FromHz(hz float64, unit string) float64 {
	if scale, ok := frequencyScale[unit]; ok {
		return hz / scale
	}
	return hz
}

// GHzToHz and MHzToHz are the conversions the config files need.
func GHzToHz(ghz float64) float64 { return ghz * 1e9 }
func MHzToHz(mhz float64) float64 { return mhz * 1e6 }

// SnapMicroseconds rounds a duration in µs to the nearest whole nanosecond.
func SnapMicroseconds(us float64) float64 {
	return math.Round(us*1e3) / 1e3
}
