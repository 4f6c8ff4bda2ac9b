package calc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type statistic struct {
	avg float64
	std float64
}

func getStat(col []float64) (statistic, bool) {
	if len(col) == 0 {
		return statistic{}, false
	}
	if floats.Min(col) == floats.Max(col) {
		return statistic{avg: col[0]}, false
	}

	avg, std := stat.MeanStdDev(col, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return statistic{avg: avg, std: std}, false
	}

	return statistic{avg: avg, std: std}, true
}

// ZScoring standardizes every column of x with the sample mean and the
// unbiased (N-1) standard deviation. The result is a new matrix; x is only
// read. Columns with zero or non-finite variance are left as zeros and their
// indices are returned in ascending order.
func ZScoring(x mat.Matrix) (*mat.Dense, []int) {
	rows, cols := x.Dims()

	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)

	var degenerate []int
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)

		s, ok := getStat(col)
		if !ok {
			degenerate = append(degenerate, j)
			continue
		}

		floats.AddConst(-s.avg, col)
		floats.Scale(1/s.std, col)
		out.SetCol(j, col)
	}

	return out, degenerate
}
