package main

import (
	"fmt"
	"io"
	"math"

	"github.com/nvlab/pulsesweep/internal/config"
	"github.com/nvlab/pulsesweep/internal/experiment"
	"github.com/nvlab/pulsesweep/internal/sweep"
)

func loadConfig(path string) (*config.ExperimentConfig, error) {
	if path == "" {
		return config.DefaultExperimentConfig(), nil
	}
	return config.LoadExperimentConfig(path)
}

func loadExperiment(path string) (*config.ExperimentConfig, sweep.Experiment, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	exp, err := experiment.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, exp, nil
}

// compileCommand prints the program one sweep point would load.
func compileCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("compile", stderr)
	configPath := fs.String("config", "", "experiment config file (.json or .yaml); defaults apply when empty")
	value := fs.Float64("value", math.NaN(), "axis value to compile (Hz for odmr, us for rabi); defaults to the first point")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	_, exp, err := loadExperiment(*configPath)
	if err != nil {
		return err
	}
	v := *value
	if math.IsNaN(v) {
		v = exp.Axis().Values[0]
	}
	prog, err := exp.Program(v)
	if err != nil {
		return err
	}
	axisField, _ := exp.Fields()
	fmt.Fprintf(stdout, "# experiment=%s %s=%g\n", exp.Name(), axisField, v)
	fmt.Fprint(stdout, prog.Listing())
	return nil
}
