package io

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/KyungWonPark/nifti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/DynamicConnectivity/internal/volume"
)

var (
	testLabelShape = volume.Shape{X: 3, Y: 2, Z: 2}
	testLabels     = []int32{0, 1, 2, 0, 1, 2, 0, 0, 1, 2, 2, 1}
	testSrowX      = [4]float32{-3, 0, 0, 45}
	testSrowY      = [4]float32{0, 3, 0, -63}
	testSrowZ      = [4]float32{0, 0, 3, -36}
)

// writeLabelImage saves testLabels as labels.nii.gz with a non-default affine
// and returns its path.
func writeLabelImage(t *testing.T, dir string) string {
	t.Helper()

	s := testLabelShape
	img := nifti.NewImg(s.X, s.Y, s.Z, 1)

	h := img.GetHeader()
	h.SrowX, h.SrowY, h.SrowZ = testSrowX, testSrowY, testSrowZ
	h.QoffsetX, h.QoffsetY, h.QoffsetZ = 45, -63, -36
	img.SetNewHeader(h)

	for z := 0; z < s.Z; z++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				img.SetAt(uint32(x), uint32(y), uint32(z), 0, float32(testLabels[s.Index(x, y, z)]))
			}
		}
	}

	base := filepath.Join(dir, "labels.nii")
	img.Save(base)
	return base + ".gz"
}

func TestLoadLabelImage(t *testing.T) {
	path := writeLabelImage(t, t.TempDir())

	li, err := LoadLabelImage(path, testLabelShape)
	require.NoError(t, err)

	assert.Equal(t, testLabelShape, li.Volume.Shape)
	assert.Equal(t, testLabels, li.Volume.Labels)
	assert.Equal(t, int32(2), li.Volume.MaxLabel())
	assert.Equal(t, testSrowX, li.Header().SrowX)
}

func TestLoadLabelImageShapeMismatch(t *testing.T) {
	path := writeLabelImage(t, t.TempDir())

	_, err := LoadLabelImage(path, volume.Shape{X: 2, Y: 3, Z: 2})
	assert.ErrorIs(t, err, volume.ErrShapeMismatch)
	assert.ErrorContains(t, err, "3x2x2")

	_, err = LoadLabelImage(path, volume.Shape{X: 4, Y: 2, Z: 2})
	assert.ErrorIs(t, err, volume.ErrShapeMismatch)
}

func TestLoadLabelImageInvalidFile(t *testing.T) {
	dir := t.TempDir()

	zeros := filepath.Join(dir, "zeros.nii")
	require.NoError(t, os.WriteFile(zeros, make([]byte, 400), 0644))
	_, err := LoadLabelImage(zeros, testLabelShape)
	assert.ErrorContains(t, err, "not a readable NIfTI-1 file")

	// a valid header without voxel data
	h := nifti.NewImg(3, 2, 2, 1).GetHeader()
	headerOnly := filepath.Join(dir, "header.nii")
	f, err := os.Create(headerOnly)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, h))
	require.NoError(t, f.Close())

	_, err = LoadLabelImage(headerOnly, testLabelShape)
	assert.ErrorContains(t, err, "truncated")

	_, err = LoadLabelImage(filepath.Join(dir, "missing.nii"), testLabelShape)
	assert.Error(t, err)
}

func TestSaveReconstruction(t *testing.T) {
	dir := t.TempDir()
	li, err := LoadLabelImage(writeLabelImage(t, dir), testLabelShape)
	require.NoError(t, err)

	gfc := [][]float64{{0.25, -0.5}, {0.125, 0.75}}
	rv, err := volume.Reconstruct(li.Volume, gfc, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "sub_gfc.nii.gz")
	require.NoError(t, SaveReconstruction(path, rv, li))

	var img nifti.Nifti1Image
	img.LoadImage(path, true)
	h := img.GetHeader()

	assert.Equal(t, [8]int16{4, 3, 2, 2, 2, 1, 1, 1}, h.Dim)
	assert.Equal(t, int16(16), h.Datatype)
	assert.Equal(t, int16(32), h.Bitpix)
	assert.Equal(t, testSrowX, h.SrowX)
	assert.Equal(t, testSrowY, h.SrowY)
	assert.Equal(t, testSrowZ, h.SrowZ)
	assert.Equal(t, float32(45), h.QoffsetX)
	assert.Equal(t, [4]int{3, 2, 2, 2}, img.GetDims())

	s := testLabelShape
	for f := range gfc {
		for z := 0; z < s.Z; z++ {
			for y := 0; y < s.Y; y++ {
				for x := 0; x < s.X; x++ {
					want := float32(0)
					if l := testLabels[s.Index(x, y, z)]; l > 0 {
						want = float32(gfc[f][l-1])
					}
					assert.Equal(t, want, img.GetAt(uint32(x), uint32(y), uint32(z), uint32(f)), "frame %d (%d,%d,%d)", f, x, y, z)
				}
			}
		}
	}
}

func TestSaveReconstructionNeedsGzipName(t *testing.T) {
	dir := t.TempDir()
	li, err := LoadLabelImage(writeLabelImage(t, dir), testLabelShape)
	require.NoError(t, err)

	rv, err := volume.Reconstruct(li.Volume, [][]float64{{1, 2}}, nil)
	require.NoError(t, err)

	assert.Error(t, SaveReconstruction(filepath.Join(dir, "sub_gfc.nii"), rv, li))
}
