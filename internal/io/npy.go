package io

import (
	"fmt"
	"os"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
)

func writeNpy(path string, shape []int, data []float64) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("[writeNpy] failed to open %s: %w", path, err)
	}
	w.Shape = shape
	w.Version = 2

	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("[writeNpy] failed to write %s: %w", path, err)
	}

	return nil
}

func readNpy(path string) ([]int, []float64, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("[readNpy] failed to open %s: %w", path, err)
	}

	data, err := r.GetFloat64()
	if err != nil {
		return nil, nil, fmt.Errorf("[readNpy] failed to read %s: %w", path, err)
	}

	return r.Shape, data, nil
}

// NpyShape returns the shape stored in the header of an npy file
func NpyShape(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[NpyShape] failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, err := gonpy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("[NpyShape] failed to read header of %s: %w", path, err)
	}

	return r.Shape, nil
}

// DensetoNpy writes a matrix to Python numpy npy binary file
func DensetoNpy(path string, matrix mat.Matrix) error {
	rows, cols := matrix.Dims()
	dense := mat.DenseCopyOf(matrix)

	return writeNpy(path, []int{rows, cols}, dense.RawMatrix().Data)
}

// NpytoDense reads a 2D Python numpy npy binary file as a matrix
func NpytoDense(path string) (*mat.Dense, error) {
	shape, data, err := readNpy(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("[NpytoDense] %s has shape %v, want 2 dimensions", path, shape)
	}

	return mat.NewDense(shape[0], shape[1], data), nil
}

// SlicetoNpy writes a 1D npy file
func SlicetoNpy(path string, data []float64) error {
	return writeNpy(path, []int{len(data)}, data)
}

// NpytoSlice reads a 1D npy file
func NpytoSlice(path string) ([]float64, error) {
	shape, data, err := readNpy(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("[NpytoSlice] %s has shape %v, want 1 dimension", path, shape)
	}

	return data, nil
}

// RowstoNpy writes equally long rows as a 2D npy file
func RowstoNpy(path string, rows [][]float64) error {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}

	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("[RowstoNpy] row %d has %d values, row 0 has %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return writeNpy(path, []int{len(rows), cols}, data)
}

// StacktoNpy writes the stack as a dense n_windows x R x R npy array
func StacktoNpy(path string, s *dfc.Stack) error {
	return writeNpy(path, []int{s.Len(), s.Regions(), s.Regions()}, flattenStack(s))
}

// MatricestoNpy writes square matrices of equal size as an n x R x R npy array
func MatricestoNpy(path string, matrices []mat.Matrix) error {
	if len(matrices) == 0 {
		return fmt.Errorf("[MatricestoNpy] no matrices")
	}

	r, _ := matrices[0].Dims()
	for i, m := range matrices {
		rows, cols := m.Dims()
		if rows != r || cols != r {
			return fmt.Errorf("[MatricestoNpy] matrix %d is %dx%d, want %dx%d", i, rows, cols, r, r)
		}
	}

	return writeNpy(path, []int{len(matrices), r, r}, flattenMatrices(matrices))
}

// NpytoStack reads an n_windows x R x R npy array written by StacktoNpy.
// Both triangles are kept so the matrices can be checked for symmetry.
func NpytoStack(path string) ([]*mat.Dense, error) {
	shape, data, err := readNpy(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 || shape[1] != shape[2] || shape[1] == 0 {
		return nil, fmt.Errorf("[NpytoStack] %s has shape %v, want n x R x R", path, shape)
	}

	n, r := shape[0], shape[1]
	matrices := make([]*mat.Dense, n)
	for i := range matrices {
		matrices[i] = mat.NewDense(r, r, data[i*r*r:(i+1)*r*r])
	}

	return matrices, nil
}

func flattenStack(s *dfc.Stack) []float64 {
	matrices := make([]mat.Matrix, s.Len())
	for i, m := range s.Matrices {
		matrices[i] = m
	}
	return flattenMatrices(matrices)
}

// flattenMatrices lays out every full matrix, both triangles, one after
// another in row-major order.
func flattenMatrices(matrices []mat.Matrix) []float64 {
	if len(matrices) == 0 {
		return nil
	}

	r, _ := matrices[0].Dims()
	data := make([]float64, len(matrices)*r*r)

	for i, m := range matrices {
		block := data[i*r*r : (i+1)*r*r]
		for from := 0; from < r; from++ {
			for to := 0; to < r; to++ {
				block[from*r+to] = m.At(from, to)
			}
		}
	}

	return data
}
