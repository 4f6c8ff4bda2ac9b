package calc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Avg returns the entry-wise mean of the accumulated matrices. Entries that
// were NaN in every input are NaN.
func (p *PipeLine) Avg(acc *Accumulator) *mat.Dense {
	dim := acc.Dim()
	output := mat.NewDense(dim, dim, nil)

	p.ForEach(dim, func(index int) {
		for t := 0; t < dim; t++ {
			cnt := acc.count.At(index, t)
			if cnt == 0 {
				output.Set(index, t, math.NaN())
				continue
			}
			output.Set(index, t, acc.sum.At(index, t)/cnt)
		}
	})

	return output
}
