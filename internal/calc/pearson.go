package calc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pearson computes the region-by-region correlation matrix of a segment whose
// rows are samples and whose columns are regions. The diagonal is 0.
//
// A region with zero or non-finite variance has no defined correlation. Its row and column
// are set to NaN and its index is reported in degenerate; all other pairs are
// unaffected.
func Pearson(x mat.Matrix) (corr *mat.SymDense, degenerate []int, err error) {
	rows, cols := x.Dims()

	if rows < 2 {
		return nil, nil, fmt.Errorf("%w: segment has %d samples, need at least 2", ErrInsufficientSamples, rows)
	}
	if cols < 2 {
		return nil, nil, fmt.Errorf("%w: segment has %d regions, need at least 2", ErrSingleRegion, cols)
	}

	z, degenerate := ZScoring(x)

	corr = mat.NewSymDense(cols, nil)
	corr.SymOuterK(1/float64(rows-1), z.T())

	for from := 0; from < cols; from++ {
		corr.SetSym(from, from, 0)
		for to := from + 1; to < cols; to++ {
			corr.SetSym(from, to, clamp(corr.At(from, to)))
		}
	}

	nan := math.NaN()
	for _, d := range degenerate {
		for k := 0; k < cols; k++ {
			if k != d {
				corr.SetSym(d, k, nan)
			}
		}
	}

	return corr, degenerate, nil
}

// clamp keeps rounding error from pushing a correlation outside [-1, 1]
func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
