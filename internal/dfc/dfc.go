// Package dfc computes dynamic functional connectivity: one correlation
// matrix per sliding window of a region-averaged time series, and the global
// connectivity of every region per window.
//
// Each window is computed independently from a read-only view of the series
// and written to its own pre-allocated slot, so the result does not depend on
// the number of workers or on scheduling.
package dfc

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/window"
)

// Warning reports a region with zero or non-finite variance inside one
// window. Its row and column of that window's matrix are NaN.
type Warning struct {
	Window    int     `yaml:"window"`
	Region    int     `yaml:"region"`
	Timestamp float64 `yaml:"timestamp"`
}

func (w Warning) Error() string {
	return fmt.Sprintf("window %d (t=%gs): region %d has zero or non-finite variance", w.Window, w.Timestamp, w.Region)
}

// Unwrap lets errors.Is match calc.ErrDegenerateColumn.
func (w Warning) Unwrap() error {
	return calc.ErrDegenerateColumn
}

// Stack holds the per-window connectivity matrices in window order.
type Stack struct {
	Matrices   []*mat.SymDense
	Timestamps []float64
	Warnings   []Warning
	Params     window.Params
}

// Len returns the number of windows.
func (s *Stack) Len() int {
	return len(s.Matrices)
}

// Regions returns the matrix dimension, 0 for an empty stack.
func (s *Stack) Regions() int {
	if len(s.Matrices) == 0 {
		return 0
	}
	return s.Matrices[0].SymmetricDim()
}

// HasNaN reports whether the matrix of window i contains NaN entries.
func (s *Stack) HasNaN(i int) bool {
	m := s.Matrices[i]
	n := m.SymmetricDim()
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			if math.IsNaN(m.At(r, c)) {
				return true
			}
		}
	}
	return false
}

// DegenerateWindows returns the indices of windows that have at least one
// degenerate region, in increasing order.
func (s *Stack) DegenerateWindows() []int {
	var windows []int
	for _, w := range s.Warnings {
		if len(windows) == 0 || windows[len(windows)-1] != w.Window {
			windows = append(windows, w.Window)
		}
	}
	return windows
}

// Observer receives progress events. Implementations must be safe for
// concurrent use; WindowDone is called from worker goroutines.
type Observer interface {
	WindowDone(index int, elapsed time.Duration)
	Degenerate(w Warning)
}

type options struct {
	pl       *calc.PipeLine
	observer Observer
	logger   *slog.Logger
}

// Option configures Compute and GlobalSeries.
type Option func(*options)

// WithPipeLine runs the windows on pl.
func WithPipeLine(pl *calc.PipeLine) Option {
	return func(o *options) {
		o.pl = pl
	}
}

// Sequential runs the windows one after another in index order.
func Sequential() Option {
	return func(o *options) {
		o.pl = calc.Sequential()
	}
}

// WithObserver reports progress to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pl == nil {
		o.pl = calc.Init(1, 0, false)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Compute slides a window over ts (rows are samples, columns are regions)
// and returns the correlation matrix and center timestamp of every window.
//
// Parameter errors are returned before any window is computed. A region with
// zero or non-finite variance inside a window does not fail the call; it is reported in
// Stack.Warnings.
func Compute(ts mat.Matrix, p window.Params, opts ...Option) (*Stack, error) {
	o := buildOptions(opts)

	total, regions := ts.Dims()
	seg, err := window.New(p, total)
	if err != nil {
		return nil, err
	}
	if regions < 2 {
		return nil, fmt.Errorf("%w: series has %d regions, need at least 2", calc.ErrSingleRegion, regions)
	}

	series := asDense(ts)
	n := seg.Count()

	matrices := make([]*mat.SymDense, n)
	degenerate := make([][]int, n)
	errs := make([]error, n)

	o.pl.ForEach(n, func(i int) {
		start := time.Now()

		r := seg.Range(i)
		segment := series.Slice(r.Start, r.End, 0, regions)
		matrices[i], degenerate[i], errs[i] = calc.Pearson(segment)

		if o.observer != nil {
			o.observer.WindowDone(i, time.Since(start))
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
	}

	timestamps := seg.Timestamps()

	var warnings []Warning
	for i, columns := range degenerate {
		for _, region := range columns {
			w := Warning{Window: i, Region: region, Timestamp: timestamps[i]}
			warnings = append(warnings, w)

			o.logger.Warn("degenerate region", "window", w.Window, "region", w.Region, "timestamp", w.Timestamp)
			if o.observer != nil {
				o.observer.Degenerate(w)
			}
		}
	}

	return &Stack{
		Matrices:   matrices,
		Timestamps: timestamps,
		Warnings:   warnings,
		Params:     p,
	}, nil
}

// Stationary computes one correlation matrix over the whole series.
func Stationary(ts mat.Matrix) (*mat.SymDense, []int, error) {
	return calc.Pearson(ts)
}

func asDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}
