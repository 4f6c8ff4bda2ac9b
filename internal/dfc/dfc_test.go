package dfc

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/window"
)

func randomSeries(seed int64, rows, cols int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

type recorder struct {
	mu         sync.Mutex
	done       map[int]int
	degenerate []Warning
}

func (r *recorder) WindowDone(index int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		r.done = make(map[int]int)
	}
	r.done[index]++
}

func (r *recorder) Degenerate(w Warning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degenerate = append(r.degenerate, w)
}

func TestComputeWindows(t *testing.T) {
	ts := randomSeries(1, 10, 3)

	stack, err := Compute(ts, window.Params{Size: 5, Step: 5, FrameDuration: 1})
	require.NoError(t, err)

	require.Equal(t, 2, stack.Len())
	assert.Equal(t, 3, stack.Regions())
	assert.Equal(t, []float64{2, 7}, stack.Timestamps)
	assert.Empty(t, stack.Warnings)

	for i, start := range []int{0, 5} {
		want, _, err := calc.Pearson(ts.Slice(start, start+5, 0, 3))
		require.NoError(t, err)
		assert.True(t, mat.Equal(want, stack.Matrices[i]), "window %d", i)
		assert.False(t, stack.HasNaN(i))
	}
}

func TestComputeDefaultParameters(t *testing.T) {
	ts := randomSeries(2, 100, 8)

	stack, err := Compute(ts, window.Params{Size: 44, Step: 2, FrameDuration: 0.9})
	require.NoError(t, err)

	assert.Equal(t, 29, stack.Len())
	assert.Len(t, stack.Timestamps, 29)
	assert.InDelta(t, 19.8, stack.Timestamps[0], 1e-12)
	for i := 1; i < stack.Len(); i++ {
		assert.Greater(t, stack.Timestamps[i], stack.Timestamps[i-1])
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	ts := randomSeries(3, 120, 16)
	p := window.Params{Size: 30, Step: 3, FrameDuration: 0.72}

	first, err := Compute(ts, p, WithPipeLine(calc.Init(1, 8, false)))
	require.NoError(t, err)
	second, err := Compute(ts, p, WithPipeLine(calc.Init(1, 8, false)))
	require.NoError(t, err)
	sequential, err := Compute(ts, p, Sequential())
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	require.Equal(t, first.Len(), sequential.Len())
	for i := 0; i < first.Len(); i++ {
		a := first.Matrices[i].RawSymmetric().Data
		b := second.Matrices[i].RawSymmetric().Data
		c := sequential.Matrices[i].RawSymmetric().Data
		for k := range a {
			assert.Equal(t, math.Float64bits(a[k]), math.Float64bits(b[k]), "window %d element %d", i, k)
			assert.Equal(t, math.Float64bits(a[k]), math.Float64bits(c[k]), "window %d element %d", i, k)
		}
	}
	assert.Equal(t, first.Timestamps, second.Timestamps)
}

func TestComputeDegenerateRegion(t *testing.T) {
	ts := randomSeries(4, 10, 3)
	// region 1 is flat across the second window only
	for i := 5; i < 10; i++ {
		ts.Set(i, 1, 2.5)
	}

	obs := &recorder{}
	stack, err := Compute(ts, window.Params{Size: 5, Step: 5, FrameDuration: 1}, WithObserver(obs))
	require.NoError(t, err)

	require.Len(t, stack.Warnings, 1)
	w := stack.Warnings[0]
	assert.Equal(t, 1, w.Window)
	assert.Equal(t, 1, w.Region)
	assert.True(t, errors.Is(w, calc.ErrDegenerateColumn))
	assert.Contains(t, w.Error(), "region 1 has zero or non-finite variance")
	assert.Equal(t, []int{1}, stack.DegenerateWindows())
	assert.Equal(t, []Warning{w}, obs.degenerate)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, obs.done)

	assert.False(t, stack.HasNaN(0))
	assert.True(t, stack.HasNaN(1))

	m := stack.Matrices[1]
	assert.True(t, math.IsNaN(m.At(0, 1)))
	assert.True(t, math.IsNaN(m.At(1, 2)))
	assert.Equal(t, 0.0, m.At(1, 1))
	assert.False(t, math.IsNaN(m.At(0, 2)))

	gfc, err := GlobalSeries(stack)
	require.NoError(t, err)
	for r := 0; r < 3; r++ {
		assert.False(t, math.IsNaN(gfc[0][r]), "window 0 region %d", r)
	}
	assert.True(t, math.IsNaN(gfc[1][1]))
	assert.False(t, math.IsNaN(gfc[1][0]))
	assert.False(t, math.IsNaN(gfc[1][2]))
}

func TestComputeErrors(t *testing.T) {
	ts := randomSeries(5, 40, 4)

	_, err := Compute(ts, window.Params{Size: 41, Step: 1, FrameDuration: 1})
	assert.ErrorIs(t, err, window.ErrWindowTooLarge)

	stack, err := Compute(ts, window.Params{Size: 40, Step: 1, FrameDuration: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stack.Len())

	_, err = Compute(ts, window.Params{Size: 10, Step: 0, FrameDuration: 1})
	assert.ErrorIs(t, err, window.ErrInvalidStep)

	_, err = Compute(randomSeries(5, 40, 1), window.Params{Size: 10, Step: 1, FrameDuration: 1})
	assert.ErrorIs(t, err, calc.ErrSingleRegion)
}

// matrixOnly hides the concrete *mat.Dense behind the mat.Matrix interface
type matrixOnly struct {
	mat.Matrix
}

func TestComputeAcceptsAnyMatrix(t *testing.T) {
	ts := randomSeries(6, 20, 4)
	p := window.Params{Size: 10, Step: 5, FrameDuration: 1}

	fromDense, err := Compute(ts, p)
	require.NoError(t, err)
	fromView, err := Compute(matrixOnly{ts}, p)
	require.NoError(t, err)

	for i := range fromDense.Matrices {
		assert.True(t, mat.Equal(fromDense.Matrices[i], fromView.Matrices[i]))
	}
}

func TestGlobalSeriesOrder(t *testing.T) {
	ts := randomSeries(7, 60, 5)
	stack, err := Compute(ts, window.Params{Size: 20, Step: 10, FrameDuration: 1})
	require.NoError(t, err)

	gfc, err := GlobalSeries(stack, WithPipeLine(calc.Init(1, 4, false)))
	require.NoError(t, err)
	require.Len(t, gfc, stack.Len())

	for i, m := range stack.Matrices {
		want, err := calc.Global(m)
		require.NoError(t, err)
		assert.Equal(t, want, gfc[i])
	}
}

func TestStationary(t *testing.T) {
	ts := randomSeries(8, 50, 6)
	corr, degenerate, err := Stationary(ts)
	require.NoError(t, err)
	assert.Empty(t, degenerate)
	assert.Equal(t, 6, corr.SymmetricDim())
}

func TestComputeNonFiniteRegion(t *testing.T) {
	ts := randomSeries(9, 10, 3)
	ts.Set(2, 0, math.Inf(1))

	stack, err := Compute(ts, window.Params{Size: 5, Step: 5, FrameDuration: 1})
	require.NoError(t, err)

	require.Len(t, stack.Warnings, 1)
	assert.Equal(t, 0, stack.Warnings[0].Window)
	assert.Equal(t, 0, stack.Warnings[0].Region)
	assert.Contains(t, stack.Warnings[0].Error(), "non-finite variance")
	assert.False(t, stack.HasNaN(1))
}
