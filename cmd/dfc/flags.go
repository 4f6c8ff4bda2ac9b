package main

import (
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
)

// computeFlags override config values for the commands that compute windows.
// Only flags set on the command line are applied.
type computeFlags struct {
	window     int
	step       int
	tr         float64
	workers    int
	sequential bool
	outDir     string
	labels     string
	names      string
	roi        []string
	raw        bool
	metrics    string
}

func (f *computeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.window, "window", 44, "window size in samples")
	fs.IntVar(&f.step, "step", 2, "window step in samples")
	fs.Float64Var(&f.tr, "tr", 0.9, "sampling interval (TR) in seconds")
	fs.IntVar(&f.workers, "workers", 0, "worker goroutines (default: number of CPUs)")
	fs.BoolVar(&f.sequential, "sequential", false, "compute windows one at a time")
	fs.StringVarP(&f.outDir, "out-dir", "o", ".", "output directory")
	fs.StringVar(&f.labels, "labels", "", "NIfTI label volume for reconstruction")
	fs.StringVar(&f.names, "names", "", "csv file with region names in label order")
	fs.StringSliceVar(&f.roi, "roi", nil, "region of interest name, repeatable")
	fs.BoolVar(&f.raw, "raw", false, "also write global connectivity as raw float64")
	fs.StringVar(&f.metrics, "metrics", "", "Prometheus textfile to write")
}

func (a *app) applyFlags(cmd *cobra.Command, f *computeFlags) error {
	fs := cmd.Flags()
	cfg := a.cfg

	if fs.Changed("window") {
		cfg.Window.Size = f.window
	}
	if fs.Changed("step") {
		cfg.Window.Step = f.step
	}
	if fs.Changed("tr") {
		cfg.Window.FrameDuration = f.tr
	}
	if fs.Changed("workers") {
		cfg.Processing.Workers = f.workers
	}
	if fs.Changed("sequential") {
		cfg.Processing.Sequential = f.sequential
	}
	if fs.Changed("out-dir") {
		cfg.Output.Dir = f.outDir
	}
	if fs.Changed("labels") {
		cfg.Volume.LabelFile = f.labels
	}
	if fs.Changed("names") {
		cfg.Regions.NamesFile = f.names
	}
	if fs.Changed("roi") {
		cfg.Regions.OfInterest = f.roi
	}
	if fs.Changed("raw") {
		cfg.Output.Raw = f.raw
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Textfile = f.metrics
	}

	return cfg.Validate()
}

// pipeline builds the worker pool described by the config.
func (a *app) pipeline() *calc.PipeLine {
	var pl *calc.PipeLine
	if a.cfg.Processing.Sequential {
		pl = calc.Sequential()
	} else {
		pl = calc.Init(a.cfg.Processing.QueueSize, a.cfg.Processing.Workers, a.cfg.Processing.Debug || a.verbose)
	}
	pl.SetLogger(a.logger)
	return pl
}
