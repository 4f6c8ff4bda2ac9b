package calc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CheckConnectivity checks whether matrix is a valid connectivity matrix:
// square, symmetric, zero diagonal and every finite entry within [-1, 1].
// NaN entries are accepted where they are mirrored.
func (p *PipeLine) CheckConnectivity(matrix mat.Matrix, pre float64) bool {
	rows, cols := matrix.Dims()
	if rows != cols {
		return false
	}

	return p.SymCheck(matrix, pre) && DiagCheck(matrix, pre) && p.RangeCheck(matrix, pre)
}

// SymCheck checks symmetry
func (p *PipeLine) SymCheck(matrix mat.Matrix, pre float64) bool {
	rows, cols := matrix.Dims()
	pre = math.Abs(pre)

	isSymm := make([]bool, rows)
	p.ForEach(rows, func(index int) {
		isSymm[index] = true
		for i := index; i < cols; i++ {
			a, b := matrix.At(index, i), matrix.At(i, index)
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}
			if !(math.Abs(a-b) <= pre) {
				isSymm[index] = false
				break
			}
		}
	})

	symm := true
	for i := 0; i < rows; i++ {
		symm = symm && isSymm[i]
	}

	return symm
}

// DiagCheck checks that every diagonal element is 0
func DiagCheck(matrix mat.Matrix, pre float64) bool {
	rows, cols := matrix.Dims()
	n := rows
	if cols < n {
		n = cols
	}

	for i := 0; i < n; i++ {
		if !(math.Abs(matrix.At(i, i)) <= math.Abs(pre)) {
			return false
		}
	}

	return true
}

// RangeCheck checks every finite element lies in [-1, 1]
func (p *PipeLine) RangeCheck(matrix mat.Matrix, pre float64) bool {
	rows, cols := matrix.Dims()
	limit := 1 + math.Abs(pre)

	inRange := make([]bool, rows)
	p.ForEach(rows, func(index int) {
		inRange[index] = true
		for i := 0; i < cols; i++ {
			value := matrix.At(index, i)
			if math.IsNaN(value) {
				continue
			}
			if math.Abs(value) > limit {
				inRange[index] = false
				break
			}
		}
	})

	ok := true
	for i := 0; i < rows; i++ {
		ok = ok && inRange[i]
	}

	return ok
}
