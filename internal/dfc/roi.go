package dfc

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// ErrUnknownRegion is returned when a region of interest is not in the
// region list.
var ErrUnknownRegion = errors.New("unknown region")

// RegionsOfInterest maps region names to column indices of the global
// connectivity vectors. names lists the regions in label order, so names[k]
// is label k+1 and column k.
func RegionsOfInterest(names []string, wanted []string) ([]int, error) {
	index := make(map[string]int, len(names))
	for k, name := range names {
		if _, dup := index[name]; !dup {
			index[name] = k
		}
	}

	columns := make([]int, 0, len(wanted))
	for _, name := range wanted {
		k, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
		}
		columns = append(columns, k)
	}

	return columns, nil
}

// Aggregate returns, for every window, the mean global connectivity over the
// given columns. A window where any selected region is NaN yields NaN.
func Aggregate(gfc [][]float64, columns []int) ([]float64, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no regions of interest", ErrUnknownRegion)
	}

	agg := make([]float64, len(gfc))
	values := make([]float64, len(columns))

	for i, g := range gfc {
		nan := false
		for k, c := range columns {
			if c < 0 || c >= len(g) {
				return nil, fmt.Errorf("%w: column %d outside %d regions", ErrUnknownRegion, c, len(g))
			}
			values[k] = g[c]
			nan = nan || math.IsNaN(g[c])
		}

		if nan {
			agg[i] = math.NaN()
			continue
		}

		mean, err := stats.Mean(values)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		agg[i] = mean
	}

	return agg, nil
}
