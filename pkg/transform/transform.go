// Package transform implements fit/transform stages over feature matrices
// and the fixed standardize -> project -> select chain applied before model
// training.
package transform

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted indicates Transform was called before Fit.
	ErrNotFitted = errors.New("transform: not fitted")

	// ErrAlreadyFitted indicates Fit was called on fitted state without an
	// explicit Reset. Refitting silently would leave stale parameters.
	ErrAlreadyFitted = errors.New("transform: already fitted")
)

// Transformer is the common interface for all transform stages.
// Fit learns parameters from a reference matrix (rows are samples, columns
// are features); Transform applies already-learned parameters and returns a
// new matrix without mutating its input.
type Transformer interface {
	Fit(X *mat.Dense, y []float64) error

	Transform(X *mat.Dense) (*mat.Dense, error)

	// FitTransform executes Fit and Transform in one step.
	FitTransform(X *mat.Dense, y []float64) (*mat.Dense, error)
}

// namer is implemented by stages whose output columns differ from their
// input columns.
type namer interface {
	outputNames(in []string) []string
}

// saver is implemented by stages that can persist fitted parameters.
type saver interface {
	Save() ([]byte, error)
	Load(data []byte) error
}

// Stage is a named transformer inside a chain.
type Stage struct {
	Name        string
	Transformer Transformer
}

// Chain applies an ordered sequence of transform stages. Fitting is chained:
// each stage fits on the output of the previous stage's fit-transform, not on
// the raw input.
//
// Transform does not mutate fitted state and is safe for concurrent use;
// Fit and Reset must not run concurrently with anything on the same chain.
type Chain struct {
	mu     sync.RWMutex
	stages []Stage
	fitted bool
}

// NewChain creates a chain from the given stages, applied in order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Default returns the standard preprocessing chain: per-column
// standardization, a variance-retention projection and top-k selection
// against the label.
func Default(varianceRetention float64, k int) *Chain {
	return NewChain(
		Stage{Name: "scaler", Transformer: NewStandardScaler()},
		Stage{Name: "pca", Transformer: NewPCA(WithVarianceRetention(varianceRetention))},
		Stage{Name: "selector", Transformer: NewSelectKBest(k)},
	)
}

// Fit learns all stages' parameters in sequence. A fitted chain must be
// Reset before it can be fitted again.
func (c *Chain) Fit(X *mat.Dense, y []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fitted {
		return ErrAlreadyFitted
	}

	cur := X
	for _, s := range c.stages {
		out, err := s.Transformer.FitTransform(cur, y)
		if err != nil {
			return fmt.Errorf("stage %q: %w", s.Name, err)
		}
		cur = out
	}
	c.fitted = true
	return nil
}

// Transform applies all fitted stages in order, returning a new matrix with
// the same row count and order as the input.
func (c *Chain) Transform(X *mat.Dense) (*mat.Dense, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fitted {
		return nil, ErrNotFitted
	}

	cur := X
	for _, s := range c.stages {
		out, err := s.Transformer.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		cur = out
	}
	return cur, nil
}

// FitTransform fits the chain and returns the transformed reference matrix.
func (c *Chain) FitTransform(X *mat.Dense, y []float64) (*mat.Dense, error) {
	if err := c.Fit(X, y); err != nil {
		return nil, err
	}
	return c.Transform(X)
}

// Fitted reports whether the chain has been fitted.
func (c *Chain) Fitted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fitted
}

// Reset clears all fitted parameters so the chain can be refitted.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.stages {
		if r, ok := s.Transformer.(interface{ reset() }); ok {
			r.reset()
		}
	}
	c.fitted = false
}

// OutputNames maps input feature names through the fitted chain to the
// names of the transformed columns.
func (c *Chain) OutputNames(in []string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fitted {
		return nil, ErrNotFitted
	}

	names := in
	for _, s := range c.stages {
		if n, ok := s.Transformer.(namer); ok {
			names = n.outputNames(names)
		}
	}
	return names, nil
}

func errDims(want, got int) error {
	return fmt.Errorf("transform: fitted on %d columns, input has %d", want, got)
}

// Save serializes the fitted parameters of all stages.
func (c *Chain) Save() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fitted {
		return nil, ErrNotFitted
	}

	blobs := make(map[string][]byte, len(c.stages))
	for _, s := range c.stages {
		sv, ok := s.Transformer.(saver)
		if !ok {
			return nil, fmt.Errorf("stage %q does not support persistence", s.Name)
		}
		blob, err := sv.Save()
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		blobs[s.Name] = blob
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(blobs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores fitted parameters into a chain with matching stages.
func (c *Chain) Load(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var blobs map[string][]byte
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&blobs); err != nil {
		return err
	}

	for _, s := range c.stages {
		sv, ok := s.Transformer.(saver)
		if !ok {
			return fmt.Errorf("stage %q does not support persistence", s.Name)
		}
		blob, ok := blobs[s.Name]
		if !ok {
			return fmt.Errorf("no saved parameters for stage %q", s.Name)
		}
		if err := sv.Load(blob); err != nil {
			return fmt.Errorf("stage %q: %w", s.Name, err)
		}
	}
	c.fitted = true
	return nil
}
