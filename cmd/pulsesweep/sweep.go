package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/nvlab/pulsesweep/internal/config"
	"github.com/nvlab/pulsesweep/internal/db"
	"github.com/nvlab/pulsesweep/internal/export"
	"github.com/nvlab/pulsesweep/internal/fsutil"
	"github.com/nvlab/pulsesweep/internal/httputil"
	"github.com/nvlab/pulsesweep/internal/sweep"
	"github.com/nvlab/pulsesweep/internal/timeutil"
)

// runCommand runs one sweep in the foreground.
func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	configPath := fs.String("config", "", "experiment config file (.json or .yaml); defaults apply when empty")
	simulate := fs.Bool("sim", false, "use simulated instruments regardless of hardware.generator")
	realtime := fs.Bool("realtime", false, "with simulated instruments, wait out the real settle time")
	dbPath := fs.String("db", "", "sqlite run store; runs are not stored when empty")
	outDir := fs.String("out", "", "directory for CSV, PNG, HTML and summary output")
	debugListen := fs.String("debug-listen", "", "address for the /debug/ pages, e.g. localhost:8090")
	retries := fs.Int("retries", -1, "retries per point after a hardware error; -1 uses hardware.retries")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	logger := log.New(stderr, "", log.Lmicroseconds)

	cfg, exp, err := loadExperiment(*configPath)
	if err != nil {
		return err
	}
	if *retries < 0 {
		*retries = cfg.Hardware.GetRetries()
	}

	var (
		opener sweep.Opener
		clock  timeutil.Clock = timeutil.RealClock{}
	)
	if *simulate || cfg.Hardware.GetGenerator() == config.GeneratorSim {
		opener = newSimRig(exp.Name(), exp.Tone(exp.Axis().Values[0]).Channel).opener()
		if !*realtime {
			clock = timeutil.NewMockClock(time.Now())
		}
		logger.Printf("[run] using simulated instruments")
	} else {
		if opener, err = hardwareOpener(cfg.Hardware, logger); err != nil {
			return err
		}
	}

	runID := sweep.NewRunID()
	chanSink := sweep.NewChanSink(256)
	opts := []sweep.Option{
		sweep.WithRunID(runID),
		sweep.WithLogger(logger),
		sweep.WithRetries(*retries),
		sweep.WithClock(clock),
		sweep.WithSink(chanSink),
	}

	var (
		database *db.DB
		rec      *db.Recorder
	)
	if *dbPath != "" {
		if database, err = db.NewDB(*dbPath); err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer database.Close()

		params, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		if rec, err = database.BeginRun(ctx, runID, exp, string(params), logger); err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, sweep.WithSink(rec))
	}

	runner := sweep.NewRunner(opts...)

	var mux *http.ServeMux
	if *debugListen != "" {
		mux = http.NewServeMux()
		attachRunnerRoutes(mux, runner)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				return err
			}
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range chanSink.C() {
			if ev.Line != "" {
				fmt.Fprintln(stdout, ev.Line)
			}
		}
	}()

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if mux != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(serverCtx, *debugListen, mux, logger)
		}()
	}

	logger.Printf("[run] %s run %s: %d points", exp.Name(), runID, exp.Axis().Total())
	if err := runner.Start(ctx, exp, opener); err != nil {
		chanSink.Close()
		stopServer()
		wg.Wait()
		return err
	}

	finished := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			logger.Printf("[run] interrupted, stopping after the current point")
		case <-finished:
		}
	}()

	res, err := runner.Wait(context.Background())
	close(finished)
	chanSink.Close()
	stopServer()
	wg.Wait()
	if err != nil {
		return err
	}

	if rec != nil {
		if err := rec.Finish(context.Background(), res); err != nil {
			logger.Printf("[db] WARNING: %v", err)
		}
		logger.Printf("[db] stored %d points for run %s", rec.Recorded(), runID)
	}

	if *outDir != "" {
		if err := writeOutputs(fsutil.OSFileSystem{}, *outDir, exp.Name()+"-"+runID, res, logger); err != nil {
			logger.Printf("[export] WARNING: %v", err)
		}
	}

	logger.Printf("[run] %s: %d points, status %s", runID, len(res.Points), res.Status)
	if res.Teardown != nil {
		logger.Printf("[run] WARNING: teardown: %v", res.Teardown)
	}
	if res.Status == sweep.StatusFailed {
		return fmt.Errorf("run %s failed: %w", runID, res.Err)
	}
	return nil
}

// writeOutputs writes the data files and a JSON summary of res.
func writeOutputs(fsys fsutil.FileSystem, dir, base string, res sweep.Result, logger *log.Logger) error {
	paths, err := export.WriteAll(fsys, dir, base, res)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	summary, err := json.MarshalIndent(export.Summarize(res), "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, base+"-summary.json")
	if err := fsys.WriteFile(path, append(summary, '\n'), 0o644); err != nil {
		return err
	}
	for _, p := range append(paths, path) {
		logger.Printf("[export] wrote %s", p)
	}
	return nil
}

func attachRunnerRoutes(mux *http.ServeMux, runner *sweep.Runner) {
	debug := tsweb.Debugger(mux)
	debug.Handle("sweep", "Current sweep state (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, runner.State())
	}))
	debug.Handle("sweep/stop", "Stop the sweep after the current point", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w, http.MethodPost)
			return
		}
		runner.Stop()
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	}))
}

func serveDebug(ctx context.Context, addr string, mux *http.ServeMux, logger *log.Logger) {
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[debug] server error: %v", err)
		}
	}()
	logger.Printf("[debug] serving /debug/ on %s", addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("[debug] shutdown error: %v", err)
		if err := server.Close(); err != nil {
			logger.Printf("[debug] force close error: %v", err)
		}
	}
}
