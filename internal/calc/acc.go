package calc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Accumulator sums connectivity matrices entry by entry. NaN entries are
// skipped and counted per entry, so a region that is degenerate in one run
// does not poison the sum of the others.
type Accumulator struct {
	sum   *mat.Dense
	count *mat.Dense
	n     int
}

// NewAccumulator returns an empty accumulator for dim x dim matrices.
func NewAccumulator(dim int) *Accumulator {
	return &Accumulator{
		sum:   mat.NewDense(dim, dim, nil),
		count: mat.NewDense(dim, dim, nil),
	}
}

// Dim returns the matrix dimension
func (a *Accumulator) Dim() int {
	if a.sum == nil {
		return 0
	}
	r, _ := a.sum.Dims()
	return r
}

// Len returns the number of accumulated matrices
func (a *Accumulator) Len() int {
	return a.n
}

// Acc adds input to acc
func (p *PipeLine) Acc(input mat.Matrix, acc *Accumulator) error {
	rows, cols := input.Dims()
	dim := acc.Dim()

	if rows != dim || cols != dim {
		return fmt.Errorf("[Acc] input dims: %d by %d when accumulator dims: %d by %d", rows, cols, dim, dim)
	}

	p.ForEach(rows, func(index int) {
		for t := 0; t < cols; t++ {
			value := input.At(index, t)
			if math.IsNaN(value) {
				continue
			}
			acc.sum.Set(index, t, acc.sum.At(index, t)+value)
			acc.count.Set(index, t, acc.count.At(index, t)+1)
		}
	})
	acc.n++

	return nil
}
