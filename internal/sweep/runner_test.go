package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRig blocks every settle wait until the test releases it.
func gatedRig(t *testing.T) (*rig, chan struct{}) {
	t.Helper()
	r := newRig(100 * time.Millisecond)
	gate := make(chan struct{})
	r.clock.OnSleep(func(time.Duration) { <-gate })
	return r, gate
}

func TestRunner_InitialState(t *testing.T) {
	runner := NewRunner()
	state := runner.State()
	if state.Status != StatusIdle {
		t.Errorf("expected idle status, got %s", state.Status)
	}
	if len(state.Points) != 0 {
		t.Errorf("expected no points, got %d", len(state.Points))
	}

	// Wait on an idle runner returns immediately.
	res, err := runner.Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Points)
}

func TestRunner_RunsToCompletion(t *testing.T) {
	r := newRig(100 * time.Millisecond)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9, 2e9, 3e9}, loops: 2}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	res, err := runner.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, res.Points, 6)

	state := runner.State()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, res.RunID, state.RunID)
	assert.Equal(t, "fake", state.Experiment)
	assert.Equal(t, 6, state.Total)
	assert.Equal(t, 6, state.Completed)
	assert.InDelta(t, 1.0, state.Progress, 1e-12)
	assert.Equal(t, "Completed", state.LastStatus)
	assert.NotNil(t, state.CompletedAt)
	assert.Empty(t, state.Error)
}

func TestRunner_RejectsConcurrentStart(t *testing.T) {
	r, gate := gatedRig(t)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9, 2e9}, loops: 1}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	err := runner.Start(context.Background(), exp, r.opener())
	assert.True(t, errors.Is(err, ErrAlreadyRunning), "got %v", err)
	assert.Equal(t, StatusRunning, runner.State().Status)

	close(gate)
	_, err = runner.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, runner.State().Status)

	// A finished runner accepts a new sweep.
	r2 := newRig(100 * time.Millisecond)
	require.NoError(t, runner.Start(context.Background(), exp, r2.opener(), WithClock(r2.clock)))
	res, err := runner.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestRunner_Stop(t *testing.T) {
	r, gate := gatedRig(t)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9, 2e9, 3e9, 4e9, 5e9}, loops: 1}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	runner.Stop()
	close(gate)

	res, err := runner.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.LessOrEqual(t, len(res.Points), 1, "at most the in-flight point completes")
	assert.Equal(t, StatusCancelled, runner.State().Status)
	assert.True(t, r.gen.Closed())
}

func TestRunner_Failure(t *testing.T) {
	r := newRig(100 * time.Millisecond)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9, 2e9}, loops: 1, badValue: 2e9}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	res, err := runner.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Error(t, res.Err)
	state := runner.State()
	assert.Equal(t, StatusFailed, state.Status)
	assert.Contains(t, state.Error, "duty-cycle")
	assert.Len(t, state.Points, 1)
}

func TestRunner_StateIsACopy(t *testing.T) {
	r := newRig(100 * time.Millisecond)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9, 2e9}, loops: 1}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	_, err := runner.Wait(context.Background())
	require.NoError(t, err)

	state := runner.State()
	state.Points[0].Reading = -1
	assert.NotEqual(t, -1.0, runner.State().Points[0].Reading)
}

func TestRunner_WaitHonoursContext(t *testing.T) {
	r, gate := gatedRig(t)
	defer close(gate)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9}, loops: 1}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := runner.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_KeepsGivenRunID(t *testing.T) {
	r := newRig(100 * time.Millisecond)
	runner := NewRunner(WithClock(r.clock))
	exp := &fakeExperiment{values: []float64{1e9}, loops: 1}

	require.NoError(t, runner.Start(context.Background(), exp, r.opener(), WithRunID("run-42")))
	res, err := runner.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-42", res.RunID)
	assert.Equal(t, "run-42", runner.State().RunID)
}
