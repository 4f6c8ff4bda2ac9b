// Package volume maps per-region values back onto a voxel grid through a
// label volume, one 3D frame per window.
//
// Voxels are stored x-fastest (x + Nx*(y + Ny*z)), the order of NIfTI data on
// disk. A 4D volume stores its frames one after another, so frame f is the
// contiguous block [f*N, (f+1)*N) where N is the voxel count.
package volume

import (
	"errors"
	"fmt"
)

var (
	// ErrLabelOutOfRange is returned when a voxel label is negative or larger
	// than the number of regions.
	ErrLabelOutOfRange = errors.New("label out of range")

	// ErrShapeMismatch is returned when per-frame vectors or buffers do not
	// match the expected size.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Shape is the 3D grid size in voxels.
type Shape struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// Voxels returns the number of voxels in the grid.
func (s Shape) Voxels() int {
	return s.X * s.Y * s.Z
}

// Index returns the flat index of voxel (x, y, z).
func (s Shape) Index(x, y, z int) int {
	return x + s.X*(y+s.Y*z)
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)
}

// LabelVolume assigns each voxel a region label, 0 being background.
type LabelVolume struct {
	Shape  Shape
	Labels []int32
}

// NewLabelVolume wraps labels as a label volume of the given shape.
func NewLabelVolume(shape Shape, labels []int32) (*LabelVolume, error) {
	if shape.X <= 0 || shape.Y <= 0 || shape.Z <= 0 {
		return nil, fmt.Errorf("%w: label volume shape %s", ErrShapeMismatch, shape)
	}
	if len(labels) != shape.Voxels() {
		return nil, fmt.Errorf("%w: %d labels for shape %s (%d voxels)", ErrShapeMismatch, len(labels), shape, shape.Voxels())
	}
	return &LabelVolume{Shape: shape, Labels: labels}, nil
}

// At returns the label of voxel (x, y, z).
func (lv *LabelVolume) At(x, y, z int) int32 {
	return lv.Labels[lv.Shape.Index(x, y, z)]
}

// MaxLabel returns the largest label present.
func (lv *LabelVolume) MaxLabel() int32 {
	var max int32
	for _, l := range lv.Labels {
		if l > max {
			max = l
		}
	}
	return max
}

// Validate checks every label lies in [0, regions].
func (lv *LabelVolume) Validate(regions int) error {
	for v, l := range lv.Labels {
		if l < 0 || int(l) > regions {
			return fmt.Errorf("%w: voxel %d has label %d, regions are 1..%d", ErrLabelOutOfRange, v, l, regions)
		}
	}
	return nil
}

// Reconstructed is a 4D volume: a 3D frame per window.
type Reconstructed struct {
	Shape  Shape
	Frames int
	Data   []float64
}

// Frame returns the voxels of frame f. The slice aliases Data.
func (r *Reconstructed) Frame(f int) []float64 {
	n := r.Shape.Voxels()
	return r.Data[f*n : (f+1)*n]
}

// At returns the value of voxel (x, y, z) in frame f.
func (r *Reconstructed) At(x, y, z, f int) float64 {
	return r.Data[f*r.Shape.Voxels()+r.Shape.Index(x, y, z)]
}
