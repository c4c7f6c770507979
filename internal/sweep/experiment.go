package sweep

import "github.com/nvlab/pulsesweep/internal/pulse"

// Tone is the synthesizer setting for one sweep point.
type Tone struct {
	Channel     int
	FrequencyHz float64
	PowerDBm    float64
}

// Experiment supplies the per-point behaviour of a sweep. Run drives every
// experiment through the same loop; only the program, the tone and the
// presentation differ.
type Experiment interface {
	// Name identifies the experiment in logs and stored runs.
	Name() string

	// Axis returns the values to sweep.
	Axis() Axis

	// Program compiles a fresh pulse program for one axis value.
	Program(value float64) (pulse.Program, error)

	// Tone returns the synthesizer setting for one axis value.
	Tone(value float64) Tone

	// Fields names the axis and reading columns of the result.
	Fields() (axis, reading string)

	// FormatPoint renders one measured point as a log line.
	FormatPoint(value, reading float64) string
}
