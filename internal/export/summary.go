package export

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nvlab/pulsesweep/internal/sweep"
)

// Summary condenses a result to one mean reading per axis value.
type Summary struct {
	AxisField    string    `json:"axis_field"`
	ReadingField string    `json:"reading_field"`
	Points       int       `json:"points"`
	Values       []float64 `json:"values"`
	Means        []float64 `json:"means"`

	// Axis values with the lowest and highest mean reading. For ODMR the
	// minimum is the resonance dip.
	MinValue float64 `json:"min_value"`
	MinMean  float64 `json:"min_mean"`
	MaxValue float64 `json:"max_value"`
	MaxMean  float64 `json:"max_mean"`

	// StdDev is the sample standard deviation of all readings.
	StdDev float64 `json:"std_dev"`
}

// Summarize averages readings per axis value across loops. An empty result
// gives an empty summary.
func Summarize(res sweep.Result) Summary {
	axis, reading := fieldNames(res)
	s := Summary{AxisField: axis, ReadingField: reading, Points: len(res.Points)}
	if len(res.Points) == 0 {
		return s
	}
	s.Values, s.Means = res.Means()

	lo := floats.MinIdx(s.Means)
	hi := floats.MaxIdx(s.Means)
	s.MinValue, s.MinMean = s.Values[lo], s.Means[lo]
	s.MaxValue, s.MaxMean = s.Values[hi], s.Means[hi]
	if len(res.Points) > 1 {
		s.StdDev = stat.StdDev(res.Readings(), nil)
	}
	return s
}
