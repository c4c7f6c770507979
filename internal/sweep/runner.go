package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Start while a sweep is in progress.
var ErrAlreadyRunning = errors.New("sweep already in progress")

// State is a snapshot of a Runner.
type State struct {
	Status      Status     `json:"status"`
	RunID       string     `json:"run_id,omitempty"`
	Experiment  string     `json:"experiment,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Total       int        `json:"total_points"`
	Completed   int        `json:"completed_points"`
	Progress    float64    `json:"progress"`
	LastLine    string     `json:"last_line,omitempty"`
	LastStatus  string     `json:"last_status,omitempty"`
	Points      []Point    `json:"points"`
	Error       string     `json:"error,omitempty"`
	Teardown    string     `json:"teardown_error,omitempty"`
}

// Runner runs one sweep at a time on a background goroutine.
type Runner struct {
	opts []Option

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// NewRunner creates a runner. opts apply to every sweep it starts.
func NewRunner(opts ...Option) *Runner {
	done := make(chan struct{})
	close(done)
	return &Runner{
		opts:  opts,
		state: State{Status: StatusIdle},
		done:  done,
	}
}

// Start begins sweeping exp in the background and returns immediately.
// The sweep stops early when ctx is cancelled or Stop is called. A run ID
// given with WithRunID is kept; otherwise one is generated.
func (r *Runner) Start(ctx context.Context, exp Experiment, open Opener, opts ...Option) error {
	axis := exp.Axis()

	all := make([]Option, 0, len(r.opts)+len(opts)+2)
	all = append(all, r.opts...)
	all = append(all, opts...)
	runID := newRunConfig(all).runID

	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	now := time.Now()
	r.state = State{
		Status:     StatusRunning,
		RunID:      runID,
		Experiment: exp.Name(),
		StartedAt:  &now,
		Total:      axis.Total(),
		Points:     make([]Point, 0, axis.Total()),
	}
	r.result = Result{}

	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	all = append(all, WithRunID(runID), WithSink(SinkFunc(r.observe)))

	go func() {
		defer close(done)
		defer cancel()
		res, err := r.runSafely(sweepCtx, exp, open, all)
		r.finish(res, err)
	}()
	return nil
}

// runSafely calls Run, converting a panic that escapes it into an error.
func (r *Runner) runSafely(ctx context.Context, exp Experiment, open Opener, opts []Option) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			err = fmt.Errorf("sweep panicked: %v", p)
			res.Err = err
		}
	}()
	return Run(ctx, exp, open, opts...)
}

func (r *Runner) observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.Line != "" {
		r.state.LastLine = ev.Line
	}
	if ev.Status != "" {
		r.state.LastStatus = ev.Status
	}
	if ev.HasProgress {
		r.state.Progress = ev.Progress
	}
	if ev.Point != nil {
		r.state.Points = append(r.state.Points, *ev.Point)
		r.state.Completed = len(r.state.Points)
	}
}

func (r *Runner) finish(res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.result = res
	r.state.Status = res.Status
	if !res.Status.Done() {
		r.state.Status = StatusFailed
	}
	r.state.CompletedAt = &now
	if err != nil {
		r.state.Error = err.Error()
	}
	if res.Teardown != nil {
		r.state.Teardown = res.Teardown.Error()
	}
	r.cancel = nil
}

// Stop requests cancellation of the running sweep. The point in progress
// is completed first. Stop does not wait; use Wait for that.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Wait blocks until the current sweep ends or ctx is done, and returns the
// sweep's result.
func (r *Runner) Wait(ctx context.Context) (Result, error) {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	res := r.result
	res.Points = append([]Point(nil), r.result.Points...)
	return res, nil
}

// State returns a copy of the runner's current state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	points := make([]Point, len(r.state.Points))
	copy(points, r.state.Points)
	state.Points = points
	return state
}
