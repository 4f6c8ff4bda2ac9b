package io

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/KyungWonPark/nifti"

	"github.com/KyungWonPark/DynamicConnectivity/internal/volume"
)

const (
	niftiFloat32   = 16
	niftiVoxOffset = 352
)

// LabelImage is a label volume read from a NIfTI-1 file together with the
// file's header, so outputs can be written on the same grid and affine.
type LabelImage struct {
	Path   string
	Volume *volume.LabelVolume
	header nifti.Nifti1Header
}

// Header returns the NIfTI-1 header of the label file
func (li *LabelImage) Header() nifti.Nifti1Header {
	return li.header
}

// niftiCall runs fn and turns a panic of the nifti package, which reports
// unreadable input by printing and then indexing missing data, into an error.
func niftiCall(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("[%s] %v", name, r)
		}
	}()

	fn()
	return nil
}

// LoadLabelImage reads the first volume of a NIfTI-1 parcellation as region
// labels. The image grid must equal shape. Values are rounded to the nearest
// integer.
func LoadLabelImage(path string, shape volume.Shape) (*LabelImage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("[LoadLabelImage] %w", err)
	}
	if shape.Voxels() <= 0 {
		return nil, fmt.Errorf("[LoadLabelImage] %w: shape %s", volume.ErrShapeMismatch, shape)
	}

	var img nifti.Nifti1Image
	if err := niftiCall("LoadLabelImage", func() { img.LoadImage(path, true) }); err != nil {
		return nil, fmt.Errorf("%w: %s is not a readable NIfTI-1 file", err, path)
	}

	header := img.GetHeader()
	switch header.Bitpix {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("[LoadLabelImage] %s is not a readable NIfTI-1 file: bitpix=%d", path, header.Bitpix)
	}
	if header.Dim[0] < 3 {
		return nil, fmt.Errorf("[LoadLabelImage] %s has %d dimensions, want at least 3", path, header.Dim[0])
	}

	dims := img.GetDims()
	if dims[0] != shape.X || dims[1] != shape.Y || dims[2] != shape.Z {
		return nil, fmt.Errorf("[LoadLabelImage] %w: %s is %dx%dx%d, volume shape is %s",
			volume.ErrShapeMismatch, path, dims[0], dims[1], dims[2], shape)
	}

	var frames int
	if err := niftiCall("LoadLabelImage", func() { frames = len(img.GetTimeSeries(0, 0, 0)) }); err != nil {
		return nil, err
	}
	if frames < 1 {
		return nil, fmt.Errorf("[LoadLabelImage] %s is truncated: less than one %s volume of data", path, shape)
	}

	labels := make([]int32, shape.Voxels())
	for z := 0; z < shape.Z; z++ {
		for y := 0; y < shape.Y; y++ {
			for x := 0; x < shape.X; x++ {
				value := float64(img.GetAt(uint32(x), uint32(y), uint32(z), 0))
				labels[shape.Index(x, y, z)] = int32(math.Round(value))
			}
		}
	}

	lv, err := volume.NewLabelVolume(shape, labels)
	if err != nil {
		return nil, fmt.Errorf("[LoadLabelImage] %s: %w", path, err)
	}

	return &LabelImage{Path: path, Volume: lv, header: header}, nil
}

// reconstructionHeader is the label header with the data description
// replaced by a float32 x y z frames volume. The qform and sform are kept.
func reconstructionHeader(ref nifti.Nifti1Header, s volume.Shape, frames int) nifti.Nifti1Header {
	h := ref

	h.SizeofHdr = 348
	h.Dim = [8]int16{4, int16(s.X), int16(s.Y), int16(s.Z), int16(frames), 1, 1, 1}
	h.Datatype = niftiFloat32
	h.Bitpix = 32
	h.VoxOffset = niftiVoxOffset
	h.SclSlope = 1
	h.SclInter = 0
	h.CalMin = 0
	h.CalMax = 0
	h.Magic = [4]byte{'n', '+', '1', 0}

	return h
}

// SaveReconstruction writes a 4D volume to a gzipped NIfTI-1 file carrying
// the label image's header, with the dimensions and data type updated to the
// volume's. path must end in .nii.gz.
func SaveReconstruction(path string, rv *volume.Reconstructed, ref *LabelImage) error {
	if !strings.HasSuffix(path, ".nii.gz") {
		return fmt.Errorf("[SaveReconstruction] %s: output must be a .nii.gz file", path)
	}
	if rv.Shape != ref.Volume.Shape {
		return fmt.Errorf("[SaveReconstruction] %w: volume %s, label image %s", volume.ErrShapeMismatch, rv.Shape, ref.Volume.Shape)
	}

	s := rv.Shape
	for _, d := range []int{s.X, s.Y, s.Z, rv.Frames} {
		if d > math.MaxInt16 {
			return fmt.Errorf("[SaveReconstruction] %w: %s x %d frames exceeds the NIfTI-1 dimension limit", volume.ErrShapeMismatch, s, rv.Frames)
		}
	}

	newImg := nifti.NewImg(s.X, s.Y, s.Z, rv.Frames)
	newImg.SetNewHeader(reconstructionHeader(ref.header, s, rv.Frames))

	for f := 0; f < rv.Frames; f++ {
		for z := 0; z < s.Z; z++ {
			for y := 0; y < s.Y; y++ {
				for x := 0; x < s.X; x++ {
					newImg.SetAt(uint32(x), uint32(y), uint32(z), uint32(f), float32(rv.At(x, y, z, f)))
				}
			}
		}
	}

	// Save appends .gz itself
	if err := niftiCall("SaveReconstruction", func() { newImg.Save(strings.TrimSuffix(path, ".gz")) }); err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("[SaveReconstruction] %w", err)
	}

	return nil
}
