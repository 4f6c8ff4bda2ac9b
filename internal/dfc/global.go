package dfc

import (
	"fmt"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
)

// GlobalSeries reduces every window of s to its global connectivity vector.
// Element [i][r] is the mean connectivity of region r to the other regions in
// window i.
func GlobalSeries(s *Stack, opts ...Option) ([][]float64, error) {
	o := buildOptions(opts)

	n := s.Len()
	gfc := make([][]float64, n)
	errs := make([]error, n)

	o.pl.ForEach(n, func(i int) {
		gfc[i], errs[i] = calc.Global(s.Matrices[i])
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
	}

	return gfc, nil
}
