package transform

import (
	"bytes"
	"encoding/gob"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler standardizes each column by subtracting the mean and
// dividing by the standard deviation learned from the reference matrix.
// Columns with zero variance clamp the divisor to 1 so a constant column
// standardizes to exactly 0 instead of dividing by zero.
type StandardScaler struct {
	mu     sync.RWMutex
	mean   []float64
	scale  []float64
	fitted bool
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns per-column mean and standard deviation.
func (s *StandardScaler) Fit(X *mat.Dense, _ []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, cols := X.Dims()
	s.mean = make([]float64, cols)
	s.scale = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(rows)

		var variance float64
		for i := 0; i < rows; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(rows)

		std := math.Sqrt(variance)
		if std == 0 {
			std = 1 // zero-variance clamp
		}
		s.mean[j] = mean
		s.scale[j] = std
	}
	s.fitted = true
	return nil
}

// Transform applies the fitted standardization, returning a new matrix.
func (s *StandardScaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.fitted {
		return nil, ErrNotFitted
	}

	rows, cols := X.Dims()
	if cols != len(s.mean) {
		return nil, errDims(len(s.mean), cols)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.mean[j])/s.scale[j])
		}
	}
	return out, nil
}

// FitTransform fits the scaler and transforms the reference matrix.
func (s *StandardScaler) FitTransform(X *mat.Dense, y []float64) (*mat.Dense, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Mean returns the fitted per-column means.
func (s *StandardScaler) Mean() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.mean))
	copy(out, s.mean)
	return out
}

// Scale returns the fitted per-column divisors.
func (s *StandardScaler) Scale() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.scale))
	copy(out, s.scale)
	return out
}

func (s *StandardScaler) reset() {
	s.mean = nil
	s.scale = nil
	s.fitted = false
}

type scalerParams struct {
	Mean  []float64
	Scale []float64
}

// Save serializes the fitted parameters.
func (s *StandardScaler) Save() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.fitted {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(scalerParams{Mean: s.mean, Scale: s.scale}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores fitted parameters.
func (s *StandardScaler) Load(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p scalerParams
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&p); err != nil {
		return err
	}
	s.mean = p.Mean
	s.scale = p.Scale
	s.fitted = true
	return nil
}
