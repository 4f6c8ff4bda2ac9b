package io

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// DensetoCSV saves a matrix as a csv file
func DensetoCSV(path string, matrix mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[DensetoCSV] failed to create %s: %w", path, err)
	}
	defer f.Close()

	rows, _ := matrix.Dims()

	stride := runtime.NumCPU()
	parsed := make([]string, stride)

	for row := 0; row < rows; row += stride {
		var wg sync.WaitGroup
		jobMark := stride

		if row+stride >= rows {
			jobMark = rows - row
		}

		wg.Add(jobMark)
		for offset := 0; offset < jobMark; offset++ {
			go formatLine(matrix, parsed, offset, row, &wg)
		}
		wg.Wait()

		for i := 0; i < jobMark; i++ {
			if _, err := fmt.Fprintf(f, "%s\n", parsed[i]); err != nil {
				return fmt.Errorf("[DensetoCSV] failed to write %s: %w", path, err)
			}
		}
	}

	return f.Close()
}

func formatLine(matrix mat.Matrix, parsed []string, offset int, row int, wg *sync.WaitGroup) {
	defer wg.Done()

	_, cols := matrix.Dims()

	fields := make([]string, cols)
	for i := 0; i < cols; i++ {
		fields[i] = strconv.FormatFloat(matrix.At(row+offset, i), 'g', -1, 64)
	}

	parsed[offset] = strings.Join(fields, ", ")
}

// CSVtoDense reads a numeric csv file as a matrix. A first line that does
// not parse as numbers is taken as a header and skipped.
func CSVtoDense(path string) (*mat.Dense, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 && !isNumeric(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("[CSVtoDense] %s has no data rows", path)
	}

	rows, cols := len(records), len(records[0])
	matrix := mat.NewDense(rows, cols, nil)

	workers := runtime.NumCPU()
	order := make(chan int, workers)
	errs := make([]error, rows)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go parseLine(records, matrix, errs, order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("[CSVtoDense] %s: %w", path, err)
		}
	}

	return matrix, nil
}

func parseLine(records [][]string, matrix *mat.Dense, errs []error, order <-chan int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	for {
		index, ok := <-order
		if ok {
			if len(records[index]) != cols {
				errs[index] = fmt.Errorf("line %d has %d fields, want %d", index+1, len(records[index]), cols)
			} else {
				for i := 0; i < cols; i++ {
					value, err := strconv.ParseFloat(strings.TrimSpace(records[index][i]), 64)
					if err != nil {
						errs[index] = fmt.Errorf("line %d: %w", index+1, err)
						break
					}

					matrix.Set(index, i, value)
				}
			}

			wg.Done()
		} else {
			break
		}
	}
}

// LoadRegionNames reads the named column of a csv file with a header row.
// The rows are the regions in label order: row k holds the name of label k+1.
func LoadRegionNames(path string, column string) ([]string, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("[LoadRegionNames] %s is empty", path)
	}

	idx := -1
	for i, name := range records[0] {
		if strings.TrimSpace(name) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("[LoadRegionNames] %s has no column %q", path, column)
	}

	names := make([]string, 0, len(records)-1)
	for line, record := range records[1:] {
		if idx >= len(record) {
			return nil, fmt.Errorf("[LoadRegionNames] %s line %d has no column %q", path, line+2, column)
		}
		names = append(names, strings.TrimSpace(record[idx]))
	}

	return names, nil
}

// SeriestoCSV writes a seconds,value csv file
func SeriestoCSV(path string, timestamps []float64, values []float64) error {
	if len(timestamps) != len(values) {
		return fmt.Errorf("[SeriestoCSV] %d timestamps for %d values", len(timestamps), len(values))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[SeriestoCSV] failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"seconds", "value"}); err != nil {
		return err
	}
	for i := range timestamps {
		record := []string{
			strconv.FormatFloat(timestamps[i], 'g', -1, 64),
			strconv.FormatFloat(values[i], 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("[SeriestoCSV] failed to write %s: %w", path, err)
	}

	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return records, nil
}

func isNumeric(record []string) bool {
	for _, field := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsInf(v, 0) {
			return false
		}
	}
	return len(record) > 0
}
