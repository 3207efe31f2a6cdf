package transform

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler(t *testing.T) {
	t.Run("standardizes columns", func(t *testing.T) {
		X := mat.NewDense(4, 2, []float64{
			1, 10,
			2, 20,
			3, 30,
			4, 40,
		})

		s := NewStandardScaler()
		out, err := s.FitTransform(X, nil)
		require.NoError(t, err)

		rows, cols := out.Dims()
		assert.Equal(t, 4, rows)
		assert.Equal(t, 2, cols)

		// Each column should have mean ~0.
		for j := 0; j < cols; j++ {
			var sum float64
			for i := 0; i < rows; i++ {
				sum += out.At(i, j)
			}
			assert.InDelta(t, 0, sum/float64(rows), 1e-12)
		}
	})

	t.Run("constant column standardizes to zero", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{7, 7, 7})

		s := NewStandardScaler()
		out, err := s.FitTransform(X, nil)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			assert.Equal(t, 0.0, out.At(i, 0))
		}
	})

	t.Run("transform before fit", func(t *testing.T) {
		s := NewStandardScaler()
		_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
		assert.ErrorIs(t, err, ErrNotFitted)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		X := mat.NewDense(2, 1, []float64{1, 3})
		s := NewStandardScaler()
		_, err := s.FitTransform(X, nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, X.At(0, 0))
		assert.Equal(t, 3.0, X.At(1, 0))
	})
}

func TestPCA(t *testing.T) {
	t.Run("drops redundant dimensions", func(t *testing.T) {
		// Second column is an exact multiple of the first: one direction
		// explains all variance.
		n := 50
		data := make([]float64, 0, n*2)
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < n; i++ {
			v := rng.NormFloat64()
			data = append(data, v, 2*v)
		}
		X := mat.NewDense(n, 2, data)

		p := NewPCA(WithVarianceRetention(0.95))
		out, err := p.FitTransform(X, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, p.NumComponents())
		_, cols := out.Dims()
		assert.Equal(t, 1, cols)
	})

	t.Run("component count fixed after fit", func(t *testing.T) {
		X := randMatrix(40, 5, 2)
		p := NewPCA()
		require.NoError(t, p.Fit(X, nil))
		k := p.NumComponents()

		held := randMatrix(10, 5, 3)
		out, err := p.Transform(held)
		require.NoError(t, err)
		_, cols := out.Dims()
		assert.Equal(t, k, cols)
		assert.Equal(t, k, p.NumComponents())
	})

	t.Run("max components cap", func(t *testing.T) {
		X := randMatrix(40, 6, 4)
		p := NewPCA(WithVarianceRetention(1.0), WithMaxComponents(2))
		require.NoError(t, p.Fit(X, nil))
		assert.Equal(t, 2, p.NumComponents())
	})

	t.Run("transform before fit", func(t *testing.T) {
		p := NewPCA()
		_, err := p.Transform(mat.NewDense(2, 2, nil))
		assert.ErrorIs(t, err, ErrNotFitted)
	})
}

func TestSelectKBest(t *testing.T) {
	// Column 0 perfectly separates the classes, column 1 is pure noise
	// shared across classes, column 2 separates weakly.
	X := mat.NewDense(6, 3, []float64{
		0, 5, 1.0,
		0, -5, 1.2,
		0, 5, 0.9,
		10, -5, 2.0,
		10, 5, 2.1,
		10, -5, 1.8,
	})
	y := []float64{0, 0, 0, 1, 1, 1}

	t.Run("keeps most relevant columns", func(t *testing.T) {
		s := NewSelectKBest(2)
		out, err := s.FitTransform(X, y)
		require.NoError(t, err)

		assert.Equal(t, []int{0, 2}, s.Support())
		_, cols := out.Dims()
		assert.Equal(t, 2, cols)
	})

	t.Run("k larger than column count keeps everything", func(t *testing.T) {
		s := NewSelectKBest(20)
		out, err := s.FitTransform(X, y)
		require.NoError(t, err)
		_, cols := out.Dims()
		assert.Equal(t, 3, cols)
	})

	t.Run("labels required", func(t *testing.T) {
		s := NewSelectKBest(2)
		assert.Error(t, s.Fit(X, nil))
	})

	t.Run("transform before fit", func(t *testing.T) {
		s := NewSelectKBest(2)
		_, err := s.Transform(X)
		assert.ErrorIs(t, err, ErrNotFitted)
	})
}

func TestFScore(t *testing.T) {
	tests := []struct {
		name   string
		column []float64
		y      []float64
		check  func(t *testing.T, f float64)
	}{
		{
			name:   "separable classes score high",
			column: []float64{0, 0.1, -0.1, 10, 10.1, 9.9},
			y:      []float64{0, 0, 0, 1, 1, 1},
			check: func(t *testing.T, f float64) {
				assert.Greater(t, f, 100.0)
			},
		},
		{
			name:   "identical distributions score low",
			column: []float64{1, 2, 3, 1, 2, 3},
			y:      []float64{0, 0, 0, 1, 1, 1},
			check: func(t *testing.T, f float64) {
				assert.Equal(t, 0.0, f)
			},
		},
		{
			name:   "single class scores zero",
			column: []float64{1, 2, 3},
			y:      []float64{0, 0, 0},
			check: func(t *testing.T, f float64) {
				assert.Equal(t, 0.0, f)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, FScore(tt.column, tt.y))
		})
	}
}

func TestChain(t *testing.T) {
	X := randMatrix(60, 8, 42)
	y := make([]float64, 60)
	for i := range y {
		if i%2 == 0 {
			y[i] = 1
		}
	}

	t.Run("fit then transform is deterministic", func(t *testing.T) {
		c := Default(0.95, 4)
		require.NoError(t, c.Fit(X, y))

		a, err := c.Transform(X)
		require.NoError(t, err)
		b, err := c.Transform(X)
		require.NoError(t, err)

		assert.True(t, mat.Equal(a, b))
	})

	t.Run("transform preserves row count", func(t *testing.T) {
		c := Default(0.95, 4)
		require.NoError(t, c.Fit(X, y))

		held := randMatrix(15, 8, 7)
		out, err := c.Transform(held)
		require.NoError(t, err)
		rows, _ := out.Dims()
		assert.Equal(t, 15, rows)
	})

	t.Run("transform on held-out data does not change parameters", func(t *testing.T) {
		c := Default(0.95, 4)
		require.NoError(t, c.Fit(X, y))

		before, err := c.Transform(X)
		require.NoError(t, err)

		held := randMatrix(15, 8, 7)
		_, err = c.Transform(held)
		require.NoError(t, err)

		after, err := c.Transform(X)
		require.NoError(t, err)
		assert.True(t, mat.Equal(before, after))
	})

	t.Run("transform before fit", func(t *testing.T) {
		c := Default(0.95, 4)
		_, err := c.Transform(X)
		assert.ErrorIs(t, err, ErrNotFitted)
	})

	t.Run("refit requires reset", func(t *testing.T) {
		c := Default(0.95, 4)
		require.NoError(t, c.Fit(X, y))

		err := c.Fit(X, y)
		assert.ErrorIs(t, err, ErrAlreadyFitted)

		c.Reset()
		assert.False(t, c.Fitted())
		assert.NoError(t, c.Fit(X, y))
	})

	t.Run("output names", func(t *testing.T) {
		c := Default(0.95, 3)
		require.NoError(t, c.Fit(X, y))

		in := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		names, err := c.OutputNames(in)
		require.NoError(t, err)

		out, err := c.Transform(X)
		require.NoError(t, err)
		_, cols := out.Dims()
		assert.Len(t, names, cols)
	})
}

func TestChainSaveLoad(t *testing.T) {
	X := randMatrix(60, 8, 42)
	y := make([]float64, 60)
	for i := range y {
		if i%3 == 0 {
			y[i] = 1
		}
	}

	original := Default(0.95, 4)
	require.NoError(t, original.Fit(X, y))

	held := randMatrix(20, 8, 9)
	want, err := original.Transform(held)
	require.NoError(t, err)

	blob, err := original.Save()
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	loaded := Default(0.95, 4)
	require.NoError(t, loaded.Load(blob))

	got, err := loaded.Transform(held)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func BenchmarkChainFit(b *testing.B) {
	X := randMatrix(1000, 20, 42)
	y := make([]float64, 1000)
	for i := range y {
		if i%2 == 0 {
			y[i] = 1
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := Default(0.95, 10)
		c.Fit(X, y)
	}
}

func BenchmarkChainTransform(b *testing.B) {
	X := randMatrix(1000, 20, 42)
	y := make([]float64, 1000)
	for i := range y {
		if i%2 == 0 {
			y[i] = 1
		}
	}
	c := Default(0.95, 10)
	if err := c.Fit(X, y); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Transform(X)
	}
}

func randMatrix(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * float64(1+i%cols)
	}
	return mat.NewDense(rows, cols, data)
}
