package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// F64SliceToBin writes float64 slice to a file as raw little-endian values
func F64SliceToBin(path string, slice []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[F64SliceToBin] failed to create file %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, slice); err != nil {
		return fmt.Errorf("[F64SliceToBin] failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("[F64SliceToBin] failed to write %s: %w", path, err)
	}

	return file.Close()
}

// BinToF64Slice reads a file written by F64SliceToBin
func BinToF64Slice(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[BinToF64Slice] failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%8 != 0 {
		return nil, fmt.Errorf("[BinToF64Slice] %s size %d is not a multiple of 8", path, info.Size())
	}

	slice := make([]float64, info.Size()/8)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, slice); err != nil {
		return nil, fmt.Errorf("[BinToF64Slice] failed to read %s: %w", path, err)
	}

	return slice, nil
}
