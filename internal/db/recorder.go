package db

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/nvlab/pulsesweep/internal/sweep"
)

// Recorder is a sweep.Sink that stores every measured point of one run.
// Emit only queues the point; a background writer inserts it, so a slow
// disk never holds up the sweep worker. Write failures are logged and the
// first one is kept; they do not stop the sweep.
type Recorder struct {
	db     *DB
	runID  string
	logger *log.Logger

	mu     sync.Mutex
	queue  []queuedPoint
	seq    int
	err    error
	closed bool

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type queuedPoint struct {
	seq int
	pt  sweep.Point
}

var _ sweep.Sink = (*Recorder)(nil)

// BeginRun creates the run row for exp and returns a recorder for its
// points. paramsJSON describes the experiment settings and may be empty.
// The recorder must be released with Finish or Close.
func (db *DB) BeginRun(ctx context.Context, runID string, exp sweep.Experiment, paramsJSON string, logger *log.Logger) (*Recorder, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	axisField, readingField := exp.Fields()
	err := db.CreateRun(ctx, Run{
		ID:           runID,
		Experiment:   exp.Name(),
		AxisField:    axisField,
		ReadingField: readingField,
		Status:       string(sweep.StatusRunning),
		ParamsJSON:   paramsJSON,
		TotalPoints:  exp.Axis().Total(),
		StartedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		db:      db,
		runID:   runID,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.writer()
	return r, nil
}

// Emit queues a point event for storage and never blocks on the database.
func (r *Recorder) Emit(ev sweep.Event) {
	if ev.Point == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Printf("[db] WARNING: run %s: point %d arrived after the recorder closed, dropped", r.runID, ev.Point.Index)
		return
	}
	r.queue = append(r.queue, queuedPoint{seq: r.seq, pt: *ev.Point})
	r.seq++
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) writer() {
	defer close(r.stopped)
	for {
		select {
		case <-r.wake:
			r.drain()
		case <-r.done:
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, q := range batch {
			if err := r.db.RecordPoint(context.Background(), r.runID, q.seq, q.pt); err != nil {
				r.logger.Printf("[db] WARNING: %v", err)
				r.mu.Lock()
				if r.err == nil {
					r.err = err
				}
				r.mu.Unlock()
			}
		}
	}
}

// Close writes every queued point, stops the background writer and
// returns the first write failure. Points emitted afterwards are dropped.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	})
	<-r.stopped
	return r.Err()
}

// Finish flushes the queued points and records the final state of the run.
func (r *Recorder) Finish(ctx context.Context, res sweep.Result) error {
	r.Close()
	res.RunID = r.runID
	return r.db.FinishRun(ctx, res)
}

// RunID is the run the recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

// Recorded returns the number of points queued for storage.
func (r *Recorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Err returns the first write failure seen so far. Call it after Close or
// Finish to cover every queued point.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
