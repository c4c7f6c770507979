// Package sweep runs a measurement over an axis of values: for every point
// it recompiles and reloads the pulse program, tunes the synthesizer, waits
// for the lock-in to settle and records one reading.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/pulse"
	"github.com/nvlab/pulsesweep/internal/timeutil"
)

type runConfig struct {
	clock   timeutil.Clock
	sinks   MultiSink
	logger  *log.Logger
	retries int
	runID   string
}

// Option configures Run and Runner.
type Option func(*runConfig)

// WithClock replaces the wall clock used for settle waits and timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(rc *runConfig) {
		if c != nil {
			rc.clock = c
		}
	}
}

// WithSink adds a progress sink. May be given more than once.
func WithSink(s Sink) Option {
	return func(rc *runConfig) {
		if s != nil {
			rc.sinks = append(rc.sinks, s)
		}
	}
}

// WithLogger sets the logger for sweep diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(rc *runConfig) {
		if l != nil {
			rc.logger = l
		}
	}
}

// WithRetries allows a point that fails with a HardwareCommandError to be
// measured again up to n more times before the run fails. The default is 0.
func WithRetries(n int) Option {
	return func(rc *runConfig) {
		if n >= 0 {
			rc.retries = n
		}
	}
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(rc *runConfig) {
		rc.runID = id
	}
}

func newRunConfig(opts []Option) runConfig {
	rc := runConfig{
		clock:  timeutil.RealClock{},
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.runID == "" {
		rc.runID = NewRunID()
	}
	return rc
}

// NewRunID returns a time-ordered run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Run acquires a session from open, sweeps exp over its axis and releases
// the session.
//
// Cancelling ctx stops the sweep at the next point boundary; instrument
// acquisition and the point in flight always complete. A cancelled run returns its points with status
// StatusCancelled and a nil error. Any other failure aborts the run and is
// returned together with the points measured so far, with status
// StatusFailed. Errors from releasing the instruments are stored in
// Result.Teardown and never replace the run error.
func Run(ctx context.Context, exp Experiment, open Opener, opts ...Option) (res Result, err error) {
	rc := newRunConfig(opts)
	axisField, readingField := exp.Fields()
	res = Result{
		RunID:        rc.runID,
		Experiment:   exp.Name(),
		AxisField:    axisField,
		ReadingField: readingField,
		Status:       StatusRunning,
		StartedAt:    rc.clock.Now(),
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sweep panicked: %v\n%s", p, debug.Stack())
		}
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			rc.logger.Printf("[sweep] ERROR: %v", err)
			rc.sinks.Emit(Event{Line: fmt.Sprintf("Error: %v", err), Status: "Failed"})
		}
		res.FinishedAt = rc.clock.Now()
	}()

	// Connecting runs to completion like any other hardware command; a
	// cancellation that lands here is reported at the first point boundary.
	sess, err := open.Open(context.WithoutCancel(ctx))
	if err != nil {
		return res, fmt.Errorf("acquire instruments: %w", err)
	}
	if sess == nil || sess.Generator == nil || sess.Synthesizer == nil || sess.LockIn == nil {
		return res, multierr.Append(errIncompleteSession, sess.Close())
	}
	defer func() {
		if terr := sess.Close(); terr != nil {
			res.Teardown = terr
			for _, e := range multierr.Errors(terr) {
				rc.logger.Printf("[sweep] WARNING: teardown: %v", e)
				rc.sinks.Emit(Event{Line: fmt.Sprintf("Teardown error: %v", e)})
			}
		}
	}()

	l := &loop{rc: rc, exp: exp, sess: sess, res: &res}
	err = l.run(ctx)
	return res, err
}

var errIncompleteSession = errors.New("sweep: session is missing an instrument")

type loop struct {
	rc   runConfig
	exp  Experiment
	sess *Session
	res  *Result
}

func (l *loop) run(ctx context.Context) error {
	// Hardware commands inside a point run to completion even after a
	// cancellation request; cancellation is observed between points.
	hw := context.WithoutCancel(ctx)

	axis := l.exp.Axis()
	if len(axis.Values) == 0 || axis.Loops < 1 {
		return fmt.Errorf("%s: empty sweep axis", l.exp.Name())
	}
	total := axis.Total()

	tc, err := l.sess.LockIn.TimeConstant(hw)
	if err != nil {
		return err
	}
	wait := SettleTime(tc)
	l.rc.logger.Printf("[sweep] %s run %s: %d points x %d loops, lock-in time constant %v, settle %v",
		l.exp.Name(), l.res.RunID, len(axis.Values), axis.Loops, tc, wait)

	if err := l.stopReset(hw); err != nil {
		return err
	}

	for loopN := 0; loopN < axis.Loops; loopN++ {
		for i, v := range axis.Values {
			k := axis.Ordinal(loopN, i)

			select {
			case <-ctx.Done():
				l.res.Status = StatusCancelled
				l.rc.logger.Printf("[sweep] Cancelled before point %d/%d", k, total)
				l.rc.sinks.Emit(Event{Line: "Interrupted by user.", Status: "Cancelled"})
				return nil
			default:
			}

			prog, err := l.exp.Program(v)
			if err != nil {
				return fmt.Errorf("point %d/%d (%s=%g): %w", k, total, l.res.AxisField, v, err)
			}

			reading, err := l.measure(hw, k, total, prog, v, wait)
			if err != nil {
				return fmt.Errorf("point %d/%d (%s=%g): %w", k, total, l.res.AxisField, v, err)
			}

			pt := Point{Loop: loopN, Index: i, Value: v, Reading: reading, At: l.rc.clock.Now()}
			l.res.Points = append(l.res.Points, pt)
			l.rc.sinks.Emit(Event{
				Line:        l.exp.FormatPoint(v, reading),
				Status:      fmt.Sprintf("Point %d / %d", k, total),
				Progress:    float64(k) / float64(total),
				HasProgress: true,
				Point:       &pt,
			})

			if err := l.stopReset(hw); err != nil {
				return fmt.Errorf("point %d/%d: %w", k, total, err)
			}
			l.rc.clock.Sleep(wait)
		}
	}

	l.res.Status = StatusCompleted
	l.rc.logger.Printf("[sweep] Sweep complete: %d points measured", len(l.res.Points))
	l.rc.sinks.Emit(Event{Line: fmt.Sprintf("Done: %d points.", len(l.res.Points)), Status: "Completed", Progress: 1, HasProgress: true})
	return nil
}

// measure loads prog, tunes the synthesizer, waits and reads the lock-in,
// retrying hardware failures as configured.
func (l *loop) measure(ctx context.Context, k, total int, prog pulse.Program, v float64, wait time.Duration) (float64, error) {
	tone := l.exp.Tone(v)
	for attempt := 0; ; attempt++ {
		reading, err := l.acquire(ctx, prog, tone, wait)
		if err == nil {
			return reading, nil
		}
		if !device.IsHardwareError(err) || attempt >= l.rc.retries {
			return 0, err
		}
		l.rc.logger.Printf("[sweep] WARNING: point %d/%d attempt %d failed, retrying: %v", k, total, attempt+1, err)
		l.rc.sinks.Emit(Event{Line: fmt.Sprintf("Retrying point %d: %v", k, err)})
	}
}

func (l *loop) acquire(ctx context.Context, prog pulse.Program, tone Tone, wait time.Duration) (float64, error) {
	if err := l.stopReset(ctx); err != nil {
		return 0, err
	}
	if err := pulse.Load(ctx, l.sess.Generator, prog); err != nil {
		return 0, err
	}
	if err := l.sess.Generator.Start(ctx); err != nil {
		return 0, err
	}

	synth := l.sess.Synthesizer
	if err := synth.SetFrequency(ctx, tone.Channel, tone.FrequencyHz); err != nil {
		return 0, err
	}
	if err := synth.SetPower(ctx, tone.Channel, tone.PowerDBm); err != nil {
		return 0, err
	}
	if err := synth.Enable(ctx, tone.Channel); err != nil {
		return 0, err
	}

	l.rc.clock.Sleep(wait)
	return l.sess.LockIn.ReadMagnitude(ctx)
}

func (l *loop) stopReset(ctx context.Context) error {
	if err := l.sess.Generator.Stop(ctx); err != nil {
		return err
	}
	return l.sess.Generator.Reset(ctx)
}
