package volume

import "fmt"

// Runner runs fn for every index in [0, n) and returns when all calls are
// done. *calc.PipeLine satisfies it.
type Runner interface {
	ForEach(n int, fn func(i int))
}

type inOrder struct{}

func (inOrder) ForEach(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// Reconstruct builds one frame per vector of gfc: every voxel labelled l gets
// gfc[f][l-1], background voxels stay 0. All vectors must have the same
// length R, and every label must be within [0, R]. lv is only read.
//
// A nil runner builds the frames in order on the calling goroutine.
func Reconstruct(lv *LabelVolume, gfc [][]float64, runner Runner) (*Reconstructed, error) {
	if len(gfc) == 0 {
		return nil, fmt.Errorf("%w: no frames to reconstruct", ErrShapeMismatch)
	}

	regions := len(gfc[0])
	for f, g := range gfc {
		if len(g) != regions {
			return nil, fmt.Errorf("%w: frame %d has %d regions, frame 0 has %d", ErrShapeMismatch, f, len(g), regions)
		}
	}
	if len(lv.Labels) != lv.Shape.Voxels() {
		return nil, fmt.Errorf("%w: %d labels for shape %s", ErrShapeMismatch, len(lv.Labels), lv.Shape)
	}
	if err := lv.Validate(regions); err != nil {
		return nil, err
	}

	if runner == nil {
		runner = inOrder{}
	}

	out := &Reconstructed{
		Shape:  lv.Shape,
		Frames: len(gfc),
		Data:   make([]float64, lv.Shape.Voxels()*len(gfc)),
	}

	runner.ForEach(len(gfc), func(f int) {
		fill(out.Frame(f), lv.Labels, gfc[f])
	})

	return out, nil
}

// fill substitutes every label in labels by its value through a lookup table
// with lut[0] = 0 for background.
func fill(frame []float64, labels []int32, values []float64) {
	lut := make([]float64, len(values)+1)
	copy(lut[1:], values)

	for v, l := range labels {
		frame[v] = lut[l]
	}
}
