package transform

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// PCA re-expresses columns as the smallest set of principal directions
// capturing a configured fraction of total variance. The component count is
// decided once at fit time from the reference matrix and fixed for all
// subsequent Transform calls.
type PCA struct {
	mu sync.RWMutex

	// Configuration
	varianceRetention float64
	maxComponents     int

	// Fitted model
	mean          []float64
	components    *mat.Dense // d x k projection
	explainedVar  []float64
	nComponents   int
	fitted        bool
}

// PCAOption configures a PCA stage.
type PCAOption func(*PCA)

// WithVarianceRetention sets the fraction of total variance the kept
// components must explain, in (0, 1].
func WithVarianceRetention(f float64) PCAOption {
	return func(p *PCA) {
		p.varianceRetention = f
	}
}

// WithMaxComponents caps the number of components regardless of the
// variance-retention threshold.
func WithMaxComponents(k int) PCAOption {
	return func(p *PCA) {
		p.maxComponents = k
	}
}

// NewPCA creates a projection stage retaining 95% of variance by default.
func NewPCA(opts ...PCAOption) *PCA {
	p := &PCA{varianceRetention: 0.95}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit centers the reference matrix and decomposes it, keeping the smallest
// component count whose cumulative explained variance reaches the configured
// retention fraction.
func (p *PCA) Fit(X *mat.Dense, _ []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, cols := X.Dims()
	if rows < 2 {
		return errors.New("pca: need at least 2 samples")
	}

	// Center
	p.mean = make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += X.At(i, j)
		}
		p.mean[j] = sum / float64(rows)
	}
	centered := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			centered.Set(i, j, X.At(i, j)-p.mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return errors.New("pca: SVD factorization failed")
	}

	singular := svd.Values(nil)
	variances := make([]float64, len(singular))
	var total float64
	for i, s := range singular {
		variances[i] = s * s / float64(rows-1)
		total += variances[i]
	}

	// Component count from cumulative explained-variance ratio.
	k := len(variances)
	if total > 0 {
		var cum float64
		for i, v := range variances {
			cum += v / total
			if cum >= p.varianceRetention {
				k = i + 1
				break
			}
		}
	}
	if p.maxComponents > 0 && k > p.maxComponents {
		k = p.maxComponents
	}
	if k < 1 {
		k = 1
	}

	var v mat.Dense
	svd.VTo(&v)

	p.components = mat.NewDense(cols, k, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < k; j++ {
			p.components.Set(i, j, v.At(i, j))
		}
	}
	p.explainedVar = variances[:k]
	p.nComponents = k
	p.fitted = true
	return nil
}

// Transform projects a matrix onto the fitted components.
func (p *PCA) Transform(X *mat.Dense) (*mat.Dense, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.fitted {
		return nil, ErrNotFitted
	}

	rows, cols := X.Dims()
	if cols != len(p.mean) {
		return nil, errDims(len(p.mean), cols)
	}

	centered := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			centered.Set(i, j, X.At(i, j)-p.mean[j])
		}
	}

	out := mat.NewDense(rows, p.nComponents, nil)
	out.Mul(centered, p.components)
	return out, nil
}

// FitTransform fits the projection and transforms the reference matrix.
func (p *PCA) FitTransform(X *mat.Dense, y []float64) (*mat.Dense, error) {
	if err := p.Fit(X, y); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// NumComponents returns the fitted component count.
func (p *PCA) NumComponents() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nComponents
}

// ExplainedVariance returns the per-component variance of the fitted model.
func (p *PCA) ExplainedVariance() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]float64, len(p.explainedVar))
	copy(out, p.explainedVar)
	return out
}

func (p *PCA) outputNames(_ []string) []string {
	names := make([]string, p.nComponents)
	for i := range names {
		names[i] = fmt.Sprintf("pc_%d", i+1)
	}
	return names
}

func (p *PCA) reset() {
	p.mean = nil
	p.components = nil
	p.explainedVar = nil
	p.nComponents = 0
	p.fitted = false
}

type pcaParams struct {
	Mean         []float64
	Components   []float64
	Rows, Cols   int
	ExplainedVar []float64
}

// Save serializes the fitted parameters.
func (p *PCA) Save() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.fitted {
		return nil, ErrNotFitted
	}

	d, k := p.components.Dims()
	params := pcaParams{
		Mean:         p.mean,
		Components:   make([]float64, 0, d*k),
		Rows:         d,
		Cols:         k,
		ExplainedVar: p.explainedVar,
	}
	for i := 0; i < d; i++ {
		params.Components = append(params.Components, p.components.RawRowView(i)...)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(params); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores fitted parameters.
func (p *PCA) Load(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var params pcaParams
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&params); err != nil {
		return err
	}
	p.mean = params.Mean
	p.components = mat.NewDense(params.Rows, params.Cols, params.Components)
	p.explainedVar = params.ExplainedVar
	p.nComponents = params.Cols
	p.fitted = true
	return nil
}
