package calc

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func randomSeries(seed int64, rows, cols int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestPearsonSymmetricZeroDiagonal(t *testing.T) {
	x := randomSeries(1, 44, 12)

	corr, degenerate, err := Pearson(x)
	require.NoError(t, err)
	assert.Empty(t, degenerate)

	n := corr.SymmetricDim()
	require.Equal(t, 12, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 0.0, corr.At(i, i))
		for j := 0; j < n; j++ {
			assert.Equal(t, corr.At(i, j), corr.At(j, i))
			assert.LessOrEqual(t, math.Abs(corr.At(i, j)), 1.0)
		}
	}

	assert.True(t, Sequential().CheckConnectivity(corr, 0))
}

func TestPearsonMatchesSampleCorrelation(t *testing.T) {
	x := randomSeries(7, 30, 5)
	corr, _, err := Pearson(x)
	require.NoError(t, err)

	a := make([]float64, 30)
	b := make([]float64, 30)
	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			mat.Col(a, i, x)
			mat.Col(b, j, x)
			assert.InDelta(t, stat.Correlation(a, b, nil), corr.At(i, j), 1e-12)
		}
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	rows := 10
	x := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		v := float64(i*i) - 3
		x.Set(i, 0, v)
		x.Set(i, 1, 2*v+3)
		x.Set(i, 2, -v)
	}

	corr, _, err := Pearson(x)
	require.NoError(t, err)

	assert.InDelta(t, 1, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1, corr.At(0, 2), 1e-12)
	assert.InDelta(t, -1, corr.At(1, 2), 1e-12)
}

func TestPearsonDegenerateColumn(t *testing.T) {
	x := randomSeries(3, 20, 4)
	for i := 0; i < 20; i++ {
		x.Set(i, 2, 5)
	}

	corr, degenerate, err := Pearson(x)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, degenerate)

	for k := 0; k < 4; k++ {
		if k == 2 {
			assert.Equal(t, 0.0, corr.At(2, 2))
			continue
		}
		assert.True(t, math.IsNaN(corr.At(2, k)), "row 2 col %d", k)
		assert.True(t, math.IsNaN(corr.At(k, 2)), "row %d col 2", k)
	}

	for _, pair := range [][2]int{{0, 1}, {0, 3}, {1, 3}} {
		assert.False(t, math.IsNaN(corr.At(pair[0], pair[1])))
	}
}

func TestPearsonDoesNotModifyInput(t *testing.T) {
	x := randomSeries(11, 15, 6)
	orig := mat.DenseCopyOf(x)

	_, _, err := Pearson(x)
	require.NoError(t, err)

	assert.True(t, mat.Equal(orig, x))
}

func TestPearsonErrors(t *testing.T) {
	_, _, err := Pearson(randomSeries(1, 1, 4))
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	_, _, err = Pearson(randomSeries(1, 10, 1))
	assert.ErrorIs(t, err, ErrSingleRegion)
}

func TestZScoring(t *testing.T) {
	x := randomSeries(5, 25, 3)
	x.Set(0, 1, 1e3)

	z, degenerate := ZScoring(x)
	assert.Empty(t, degenerate)

	col := make([]float64, 25)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, z)
		mean, std := stat.MeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, std, 1e-12)
	}
}

func TestGlobalConstantOffDiagonal(t *testing.T) {
	const c = 0.37
	n := 6
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, c)
		}
	}

	g, err := Global(m)
	require.NoError(t, err)
	for _, v := range g {
		assert.InDelta(t, c, v, 1e-15)
	}
}

func TestGlobalRowMean(t *testing.T) {
	m := mat.NewSymDense(3, []float64{
		0, 0.5, -0.2,
		0.5, 0, 0.1,
		-0.2, 0.1, 0,
	})

	g, err := Global(m)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.15, 0.3, -0.05}, g, 1e-15)
}

func TestGlobalNaNStaysInRegion(t *testing.T) {
	x := randomSeries(9, 20, 5)
	for i := 0; i < 20; i++ {
		x.Set(i, 0, -1)
	}
	corr, _, err := Pearson(x)
	require.NoError(t, err)

	g, err := Global(corr)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(g[0]))
	for r := 1; r < 5; r++ {
		require.False(t, math.IsNaN(g[r]), "region %d", r)

		var acc float64
		for c := 1; c < 5; c++ {
			acc += corr.At(r, c)
		}
		assert.InDelta(t, acc/3, g[r], 1e-15)
	}
}

func TestGlobalSingleRegion(t *testing.T) {
	_, err := Global(mat.NewSymDense(1, nil))
	assert.ErrorIs(t, err, ErrSingleRegion)
}

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 7, 64} {
		pl := Init(2, workers, false)

		visits := make([]int32, 100)
		pl.ForEach(len(visits), func(i int) {
			atomic.AddInt32(&visits[i], 1)
		})

		for i, v := range visits {
			assert.Equal(t, int32(1), v, "workers=%d index=%d", workers, i)
		}
	}
}

func TestSequentialRunsInOrder(t *testing.T) {
	var order []int
	Sequential().ForEach(5, func(i int) {
		order = append(order, i)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRingBuffer(t *testing.T) {
	pl := Init(2, 1, false)
	buffer := make([]int, pl.QueueSize())

	go func() {
		for job := 0; job < 10; job++ {
			slot := pl.Malloc()
			buffer[slot] = job
			pl.Push(slot)
		}
		pl.Close()
	}()

	var got []int
	for {
		slot, ok := pl.Pop()
		if !ok {
			break
		}
		got = append(got, buffer[slot])
		pl.Free(slot)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestMallocWaitsForFree(t *testing.T) {
	pl := Init(1, 1, false)
	first := pl.Malloc()

	var wg sync.WaitGroup
	claimed := make(chan int, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		claimed <- pl.Malloc()
	}()

	select {
	case <-claimed:
		t.Fatal("Malloc returned while the only slot was in use")
	default:
	}

	pl.Free(first)
	wg.Wait()
	assert.Equal(t, first, <-claimed)
}

func TestChecks(t *testing.T) {
	pl := Init(1, 4, false)

	asym := mat.NewDense(2, 2, []float64{0, 0.2, 0.3, 0})
	assert.False(t, pl.SymCheck(asym, 1e-9))
	assert.True(t, pl.SymCheck(asym, 0.2))

	diag := mat.NewDense(2, 2, []float64{1, 0.2, 0.2, 0})
	assert.False(t, DiagCheck(diag, 1e-9))
	assert.False(t, pl.CheckConnectivity(diag, 1e-9))

	wide := mat.NewDense(2, 2, []float64{0, 1.5, 1.5, 0})
	assert.False(t, pl.RangeCheck(wide, 1e-9))

	nan := math.NaN()
	withNaN := mat.NewDense(2, 2, []float64{0, nan, nan, 0})
	assert.True(t, pl.CheckConnectivity(withNaN, 1e-9))

	assert.False(t, pl.CheckConnectivity(mat.NewDense(2, 3, nil), 1e-9))
}

func TestAccAvg(t *testing.T) {
	pl := Init(1, 3, false)
	acc := NewAccumulator(3)

	a := mat.NewSymDense(3, []float64{
		0, 0.2, 0.4,
		0.2, 0, 0.6,
		0.4, 0.6, 0,
	})
	b := mat.NewSymDense(3, []float64{
		0, 0.4, math.NaN(),
		0.4, 0, math.NaN(),
		math.NaN(), math.NaN(), 0,
	})

	require.NoError(t, pl.Acc(a, acc))
	require.NoError(t, pl.Acc(b, acc))
	assert.Equal(t, 2, acc.Len())

	avg := pl.Avg(acc)
	assert.InDelta(t, 0.3, avg.At(0, 1), 1e-12)
	assert.InDelta(t, 0.3, avg.At(1, 0), 1e-12)
	assert.InDelta(t, 0.4, avg.At(0, 2), 1e-12)
	assert.InDelta(t, 0.6, avg.At(2, 1), 1e-12)
	assert.Equal(t, 0.0, avg.At(1, 1))

	assert.Error(t, pl.Acc(mat.NewDense(2, 2, nil), acc))
}

func TestAvgAllNaN(t *testing.T) {
	pl := Sequential()
	acc := NewAccumulator(2)
	require.NoError(t, pl.Acc(mat.NewDense(2, 2, []float64{0, math.NaN(), math.NaN(), 0}), acc))

	avg := pl.Avg(acc)
	assert.True(t, math.IsNaN(avg.At(0, 1)))
	assert.Equal(t, 0.0, avg.At(0, 0))
}

func TestGlobalTwoRegionsOneDegenerate(t *testing.T) {
	ts := mat.NewDense(4, 2, []float64{
		1, 3,
		2, 3,
		4, 3,
		8, 3,
	})

	corr, degenerate, err := Pearson(ts)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, degenerate)

	g, err := Global(corr)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(g[0]), "region 0 has no finite partner")
	assert.True(t, math.IsNaN(g[1]))
}
