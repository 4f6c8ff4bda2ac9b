package calc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Global reduces a connectivity matrix to the global connectivity of each
// region: the row sum divided by R-1, which is the mean connectivity to the
// other regions when the diagonal is 0.
//
// NaN entries are left out of both the sum and the partner count, so a
// degenerate region yields NaN for itself while the others stay numeric as
// long as they keep at least one finite partner. With two regions, one
// degenerate region leaves the other without partners and both are NaN.
func Global(m mat.Symmetric) ([]float64, error) {
	n := m.SymmetricDim()
	if n < 2 {
		return nil, fmt.Errorf("%w: matrix has %d regions, need at least 2", ErrSingleRegion, n)
	}

	g := make([]float64, n)
	for r := 0; r < n; r++ {
		var acc float64
		partners := 0

		for c := 0; c < n; c++ {
			value := m.At(r, c)
			if math.IsNaN(value) {
				continue
			}

			acc += value
			if c != r {
				partners++
			}
		}

		switch partners {
		case 0:
			g[r] = math.NaN()
		case n - 1:
			g[r] = acc / float64(n-1)
		default:
			g[r] = acc / float64(partners)
		}
	}

	return g, nil
}
