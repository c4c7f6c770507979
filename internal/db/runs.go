package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nvlab/pulsesweep/internal/sweep"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored sweep.
type Run struct {
	ID           string     `json:"run_id"`
	Experiment   string     `json:"experiment"`
	AxisField    string     `json:"axis_field"`
	ReadingField string     `json:"reading_field"`
	Status       string     `json:"status"`
	ParamsJSON   string     `json:"params_json"`
	TotalPoints  int        `json:"total_points"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	Teardown     string     `json:"teardown_error,omitempty"`

	// Points is the number of stored points. Filled in by ListRuns.
	Points int `json:"points"`
}

// CreateRun inserts a run in the running state.
func (db *DB) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run has no ID")
	}
	if run.Status == "" {
		run.Status = string(sweep.StatusRunning)
	}
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, experiment, axis_field, reading_field, status,
			params_json, total_points, started_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Experiment, run.AxisField, run.ReadingField, run.Status,
		run.ParamsJSON, run.TotalPoints, run.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordPoint stores the seq'th point (zero-based) of a run.
func (db *DB) RecordPoint(ctx context.Context, runID string, seq int, p sweep.Point) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO points (
			run_id, seq, loop_index, axis_index, axis_value, reading, measured_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, p.Loop, p.Index, p.Value, p.Reading, p.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert point %d of run %s: %w", seq, runID, err)
	}
	return nil
}

// FinishRun records the final status of res.
func (db *DB) FinishRun(ctx context.Context, res sweep.Result) error {
	var runErr, teardown string
	if res.Err != nil {
		runErr = res.Err.Error()
	}
	if res.Teardown != nil {
		teardown = res.Teardown.Error()
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	out, err := db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_unix_nanos = ?, error = ?, teardown_error = ?
		WHERE run_id = ?`,
		string(res.Status), finished.UnixNano(), runErr, teardown, res.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", res.RunID, err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", res.RunID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `r.run_id, r.experiment, r.axis_field, r.reading_field, r.status,
	r.params_json, r.total_points, r.started_unix_nanos, r.finished_unix_nanos,
	r.error, r.teardown_error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, extra ...any) (Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
	)
	dest := []any{
		&run.ID, &run.Experiment, &run.AxisField, &run.ReadingField, &run.Status,
		&run.ParamsJSON, &run.TotalPoints, &started, &finished,
		&run.Error, &run.Teardown,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first, with their point counts.
// A non-positive limit means 100.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+runColumns+`, COUNT(p.seq)
		FROM runs r
		LEFT JOIN points p ON p.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_unix_nanos DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var count int
		run, err := scanRun(rows, &count)
		if err != nil {
			return nil, err
		}
		run.Points = count
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run.
func (db *DB) GetRun(ctx context.Context, runID string) (Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// RunPoints returns the stored points of a run in measurement order.
func (db *DB) RunPoints(ctx context.Context, runID string) ([]sweep.Point, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT loop_index, axis_index, axis_value, reading, measured_unix_nanos
		FROM points
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []sweep.Point{}
	for rows.Next() {
		var (
			p  sweep.Point
			at int64
		)
		if err := rows.Scan(&p.Loop, &p.Index, &p.Value, &p.Reading, &at); err != nil {
			return nil, err
		}
		p.At = time.Unix(0, at).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

// LoadResult rebuilds the result of a stored run. Err and Teardown carry
// the stored messages.
func (db *DB) LoadResult(ctx context.Context, runID string) (sweep.Result, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return sweep.Result{}, err
	}
	points, err := db.RunPoints(ctx, runID)
	if err != nil {
		return sweep.Result{}, err
	}
	res := sweep.Result{
		RunID:        run.ID,
		Experiment:   run.Experiment,
		AxisField:    run.AxisField,
		ReadingField: run.ReadingField,
		Status:       sweep.Status(run.Status),
		Points:       points,
		StartedAt:    run.StartedAt,
	}
	if run.FinishedAt != nil {
		res.FinishedAt = *run.FinishedAt
	}
	if run.Error != "" {
		res.Err = errors.New(run.Error)
	}
	if run.Teardown != "" {
		res.Teardown = errors.New(run.Teardown)
	}
	return res, nil
}

// Stats reports the row counts of the run store.
func (db *DB) Stats(ctx context.Context) (runs, points int, err error) {
	if runs, err = db.tableCount(ctx, "runs"); err != nil {
		return 0, 0, err
	}
	if points, err = db.tableCount(ctx, "points"); err != nil {
		return 0, 0, err
	}
	return runs, points, nil
}
