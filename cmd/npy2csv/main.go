package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/io"
)

// npy2csv file.npy
//
// 1D and 2D arrays are written to file.csv. An n x R x R stack is written
// to file-<window>.csv, one file per window.
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s file.npy", os.Args[0])
	}
	fileName := os.Args[1]
	base := strings.TrimSuffix(fileName, ".npy")

	shape, err := io.NpyShape(fileName)
	if err != nil {
		log.Fatal(err)
	}

	switch len(shape) {
	case 1:
		data, err := io.NpytoSlice(fileName)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Reading npy file complete")
		if len(data) == 0 {
			log.Fatalf("%s is empty", fileName)
		}

		if err := io.DensetoCSV(base+".csv", mat.NewDense(len(data), 1, data)); err != nil {
			log.Fatal(err)
		}

	case 2:
		npyFile, err := io.NpytoDense(fileName)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Reading npy file complete")

		if err := io.DensetoCSV(base+".csv", npyFile); err != nil {
			log.Fatal(err)
		}

	case 3:
		matrices, err := io.NpytoStack(fileName)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Reading npy file complete")

		for i, m := range matrices {
			if err := io.DensetoCSV(fmt.Sprintf("%s-%d.csv", base, i), m); err != nil {
				log.Fatal(err)
			}
		}
		fmt.Printf("Wrote %d windows\n", len(matrices))

	default:
		log.Fatalf("%s has shape %v, want 1 to 3 dimensions", fileName, shape)
	}
}
