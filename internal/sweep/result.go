package sweep

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Status is the lifecycle state of a sweep.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Done reports whether s is a terminal state.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Point is one measured (axis value, reading) pair.
type Point struct {
	Loop    int       `json:"loop"`
	Index   int       `json:"index"`
	Value   float64   `json:"value"`
	Reading float64   `json:"reading"`
	At      time.Time `json:"at"`
}

// Result is the outcome of a sweep. Points are in visiting order. Err holds
// the error that ended a failed run; Teardown holds any error from
// releasing the instruments, whatever the status.
type Result struct {
	RunID        string
	Experiment   string
	AxisField    string
	ReadingField string
	Status       Status
	Points       []Point
	StartedAt    time.Time
	FinishedAt   time.Time
	Err          error
	Teardown     error
}

// Values returns the axis value of every point.
func (r Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Value
	}
	return out
}

// Readings returns the reading of every point.
func (r Result) Readings() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Reading
	}
	return out
}

// Means averages readings that share an axis value across loops. Values are
// returned in first-visited order.
func (r Result) Means() (values, means []float64) {
	byValue := make(map[float64][]float64)
	for _, p := range r.Points {
		if _, ok := byValue[p.Value]; !ok {
			values = append(values, p.Value)
		}
		byValue[p.Value] = append(byValue[p.Value], p.Reading)
	}
	means = make([]float64, len(values))
	for i, v := range values {
		means[i] = stat.Mean(byValue[v], nil)
	}
	return values, means
}
