package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
	dfcio "github.com/KyungWonPark/DynamicConnectivity/internal/io"
	"github.com/KyungWonPark/DynamicConnectivity/internal/metrics"
	"github.com/KyungWonPark/DynamicConnectivity/internal/volume"
)

// loadSeries reads a samples x regions series from a .npy or .csv file.
func loadSeries(path string) (*mat.Dense, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return dfcio.NpytoDense(path)
	case ".csv":
		return dfcio.CSVtoDense(path)
	}
	return nil, fmt.Errorf("%s: unsupported series format, want .npy or .csv", path)
}

// outputPrefix is the input file name without directory and extension.
func outputPrefix(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resources are loaded once per invocation and shared by every series.
type resources struct {
	pl       *calc.PipeLine
	recorder *metrics.Recorder
	labels   *dfcio.LabelImage
	names    []string
}

func (a *app) loadResources() (*resources, error) {
	res := &resources{
		pl:       a.pipeline(),
		recorder: metrics.NewRecorder(),
	}

	if a.cfg.Volume.LabelFile != "" {
		shape, err := a.cfg.VolumeShape()
		if err != nil {
			return nil, err
		}
		res.labels, err = dfcio.LoadLabelImage(a.cfg.Volume.LabelFile, shape)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("label volume loaded", "path", a.cfg.Volume.LabelFile, "shape", shape.String(), "max_label", res.labels.Volume.MaxLabel())
	}

	if a.cfg.Regions.NamesFile != "" {
		var err error
		res.names, err = dfcio.LoadRegionNames(a.cfg.Regions.NamesFile, a.cfg.Regions.NameColumn)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return res, nil
}

// finish writes the metrics textfile if one is configured.
func (a *app) finish(res *resources) error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	return res.recorder.WriteTextfile(a.cfg.Metrics.Textfile)
}

// process computes and writes every output of one series.
func (a *app) process(cmd *cobra.Command, input string, ts *mat.Dense, res *resources) (*dfcio.Manifest, error) {
	cfg := a.cfg
	samples, regions := ts.Dims()
	logger := a.logger.With("input", input)

	logger.Info("computing dynamic connectivity",
		"samples", samples,
		"regions", regions,
		"window", cfg.Window.Size,
		"step", cfg.Window.Step,
	)

	opts := []dfc.Option{
		dfc.WithPipeLine(res.pl),
		dfc.WithObserver(res.recorder),
		dfc.WithLogger(logger),
	}

	stack, err := dfc.Compute(ts, cfg.Window, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	gfc, err := dfc.GlobalSeries(stack, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	summary, err := dfc.Summarize(gfc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	m := dfcio.NewManifest(input, samples, stack)
	m.Summary = summary

	var roi []float64
	if len(cfg.Regions.OfInterest) > 0 {
		if len(res.names) != regions {
			return nil, fmt.Errorf("%s: %d region names for %d regions", input, len(res.names), regions)
		}
		columns, err := dfc.RegionsOfInterest(res.names, cfg.Regions.OfInterest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", input, err)
		}
		if roi, err = dfc.Aggregate(gfc, columns); err != nil {
			return nil, fmt.Errorf("%s: %w", input, err)
		}
		m.RegionsOfInterest = cfg.Regions.OfInterest
	}

	var rv *volume.Reconstructed
	if res.labels != nil {
		rv, err = volume.Reconstruct(res.labels.Volume, gfc, res.pl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", input, err)
		}
		res.recorder.RecordFrames(rv.Frames)
	}

	prefix := filepath.Join(cfg.Output.Dir, outputPrefix(input))
	m.Outputs["dfc"] = prefix + "_dfc.npy"
	m.Outputs["timestamps"] = prefix + "_timestamps.npy"
	m.Outputs["gfc"] = prefix + "_gfc.npy"
	if roi != nil {
		m.Outputs["roi"] = prefix + "_roi.csv"
	}
	if rv != nil {
		m.Outputs["volume"] = prefix + "_gfc.nii.gz"
	}
	if cfg.Output.Raw {
		m.Outputs["raw"] = prefix + "_gfc.f64"
	}

	var g errgroup.Group
	g.Go(func() error {
		return dfcio.StacktoNpy(m.Outputs["dfc"], stack)
	})
	g.Go(func() error {
		return dfcio.SlicetoNpy(m.Outputs["timestamps"], stack.Timestamps)
	})
	g.Go(func() error {
		return dfcio.RowstoNpy(m.Outputs["gfc"], gfc)
	})
	if roi != nil {
		g.Go(func() error {
			return dfcio.SeriestoCSV(m.Outputs["roi"], stack.Timestamps, roi)
		})
	}
	if rv != nil {
		g.Go(func() error {
			return dfcio.SaveReconstruction(m.Outputs["volume"], rv, res.labels)
		})
	}
	if cfg.Output.Raw {
		g.Go(func() error {
			flat := make([]float64, 0, len(gfc)*regions)
			for _, row := range gfc {
				flat = append(flat, row...)
			}
			return dfcio.F64SliceToBin(m.Outputs["raw"], flat)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: writing outputs: %w", input, err)
	}

	if cfg.Output.SharedMemory {
		if err := a.exportShared(cmd, stack); err != nil {
			return nil, fmt.Errorf("%s: %w", input, err)
		}
	}

	manifestPath := prefix + "_manifest.yaml"
	if err := dfcio.SaveManifest(manifestPath, m); err != nil {
		return nil, err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d windows, %d regions, %d degenerate windows -> %s\n",
		input, stack.Len(), regions, len(m.DegenerateWindows), manifestPath)

	return m, nil
}

// exportShared copies the stack into shared memory and runs the configured
// consumer on it. The segment is destroyed once the consumer exits.
func (a *app) exportShared(cmd *cobra.Command, stack *dfc.Stack) error {
	shared, err := dfcio.StacktoShm(stack)
	if err != nil {
		return err
	}
	defer shared.Release()

	a.logger.Debug("stack exported to shared memory", "segment", shared.ID, "windows", shared.Windows, "regions", shared.Regions)

	consumer := exec.CommandContext(cmd.Context(), a.cfg.Output.Consumer,
		strconv.Itoa(shared.Windows), strconv.Itoa(shared.Regions), strconv.Itoa(shared.ID))
	consumer.Stdout = cmd.OutOrStdout()
	consumer.Stderr = cmd.ErrOrStderr()

	if err := consumer.Run(); err != nil {
		return fmt.Errorf("shared memory consumer %s failed: %w", a.cfg.Output.Consumer, err)
	}

	return nil
}
