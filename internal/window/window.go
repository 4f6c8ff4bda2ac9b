// Package window splits a sampled time series into fixed-length, evenly
// stepped windows and assigns each window the time of its center sample.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
)

var (
	// ErrWindowTooLarge is returned when the window is longer than the series.
	ErrWindowTooLarge = errors.New("window too large")

	// ErrInvalidStep is returned when the step is not positive.
	ErrInvalidStep = errors.New("invalid step")

	// ErrInvalidFrameDuration is returned when the frame duration is not a
	// positive finite number.
	ErrInvalidFrameDuration = errors.New("invalid frame duration")
)

// Params are the sliding window parameters. Size and Step are in samples,
// FrameDuration is in seconds per sample.
type Params struct {
	Size          int     `yaml:"size"`
	Step          int     `yaml:"step"`
	FrameDuration float64 `yaml:"frameDuration"`
}

// Validate checks the parameters that do not depend on the series length.
func (p Params) Validate() error {
	if p.Step <= 0 {
		return fmt.Errorf("%w: step_size=%d must be positive", ErrInvalidStep, p.Step)
	}
	if p.Size < 2 {
		return fmt.Errorf("%w: window_size=%d, need at least 2 samples per window", calc.ErrInsufficientSamples, p.Size)
	}
	if !(p.FrameDuration > 0) || math.IsInf(p.FrameDuration, 0) {
		return fmt.Errorf("%w: frame_duration=%g must be a positive number of seconds", ErrInvalidFrameDuration, p.FrameDuration)
	}

	return nil
}

// Range is the half-open sample range [Start, End) of window Index.
type Range struct {
	Index int
	Start int
	End   int
}

// Len returns the number of samples in the window.
func (r Range) Len() int {
	return r.End - r.Start
}

// Segmenter enumerates the windows of a series of a given length.
type Segmenter struct {
	params Params
	total  int
	count  int
}

// New validates p against a series of total samples and returns its segmenter.
func New(p Params, total int) (*Segmenter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Size > total {
		return nil, fmt.Errorf("%w: window_size=%d exceeds series length=%d", ErrWindowTooLarge, p.Size, total)
	}

	return &Segmenter{
		params: p,
		total:  total,
		count:  (total-p.Size)/p.Step + 1,
	}, nil
}

// Params returns the parameters the segmenter was built with.
func (s *Segmenter) Params() Params {
	return s.params
}

// Count returns the number of full windows. A trailing partial window is not
// counted.
func (s *Segmenter) Count() int {
	return s.count
}

// Range returns window i.
func (s *Segmenter) Range(i int) Range {
	start := i * s.params.Step
	return Range{Index: i, Start: start, End: start + s.params.Size}
}

// Timestamp returns the time in seconds of window i's center sample. For an
// even window size the center is the later of the two middle samples, for an
// odd size it is the middle one.
func (s *Segmenter) Timestamp(i int) float64 {
	return float64(i*s.params.Step+s.params.Size/2) * s.params.FrameDuration
}

// Ranges returns every window in order.
func (s *Segmenter) Ranges() []Range {
	ranges := make([]Range, s.count)
	for i := range ranges {
		ranges[i] = s.Range(i)
	}
	return ranges
}

// Timestamps returns every window's timestamp in order.
func (s *Segmenter) Timestamps() []float64 {
	ts := make([]float64, s.count)
	for i := range ts {
		ts[i] = s.Timestamp(i)
	}
	return ts
}
