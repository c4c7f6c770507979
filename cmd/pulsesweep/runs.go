package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nvlab/pulsesweep/internal/db"
	"github.com/nvlab/pulsesweep/internal/fsutil"
	"github.com/nvlab/pulsesweep/internal/serialport"
)

const defaultDBPath = "pulsesweep.db"

// runsCommand lists stored runs, or exports one with -export.
func runsCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("runs", stderr)
	dbPath := fs.String("db", defaultDBPath, "sqlite run store")
	limit := fs.Int("limit", 20, "number of runs to list")
	exportID := fs.String("export", "", "run ID to export instead of listing")
	outDir := fs.String("out", ".", "directory for exported files")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer database.Close()

	if *exportID != "" {
		res, err := database.LoadResult(ctx, *exportID)
		if err != nil {
			return err
		}
		if len(res.Points) == 0 {
			return errors.New("run " + *exportID + " has no points")
		}
		logger := log.New(stderr, "", log.Lmicroseconds)
		return writeOutputs(fsutil.OSFileSystem{}, *outDir, res.Experiment+"-"+res.RunID, res, logger)
	}

	runs, err := database.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tEXPERIMENT\tSTATUS\tPOINTS\tSTARTED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID, r.Experiment, r.Status, r.Points, r.TotalPoints,
			r.StartedAt.Local().Format(time.DateTime), r.Error)
	}
	return tw.Flush()
}

func migrateCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", defaultDBPath, "sqlite run store")
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }

	// The action comes first: pulsesweep migrate up -db runs.db
	var action []string
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = append(action, args[0]), args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return db.RunMigrateCommand(stdout, append(action, fs.Args()...), *dbPath)
}

func portsCommand(stdout io.Writer) error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(stdout, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
