package sweep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Axis is the ordered list of values a sweep visits, repeated Loops times.
type Axis struct {
	Values []float64
	Loops  int
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("linspace needs at least 1 point, got %d", n)
	}
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return nil, errors.New("linspace bounds must be finite")
	}
	if n == 1 {
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, n), start, stop), nil
}

// NewAxis builds an axis from values, optionally visiting them in reverse.
// values is not modified.
func NewAxis(values []float64, loops int, reverse bool) (Axis, error) {
	if len(values) == 0 {
		return Axis{}, errors.New("sweep axis is empty")
	}
	if loops < 1 {
		return Axis{}, fmt.Errorf("loops must be at least 1, got %d", loops)
	}
	vs := make([]float64, len(values))
	copy(vs, values)
	if reverse {
		floats.Reverse(vs)
	}
	return Axis{Values: vs, Loops: loops}, nil
}

// Total is the number of points the sweep visits.
func (a Axis) Total() int { return len(a.Values) * a.Loops }

// Ordinal is the one-based position of (loop, index) in visiting order.
func (a Axis) Ordinal(loop, index int) int { return loop*len(a.Values) + index + 1 }
