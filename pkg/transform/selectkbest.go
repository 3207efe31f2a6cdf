package transform

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ScoreFunc ranks one feature column against the label vector. Higher
// scores mean more relevant features.
type ScoreFunc func(column, y []float64) float64

// SelectKBest keeps the k columns with the highest univariate relevance
// score against the target label. The default score is the one-way ANOVA
// F-statistic between label classes.
type SelectKBest struct {
	mu sync.RWMutex

	k     int
	score ScoreFunc

	// Fitted model
	support []int // kept column indices, ascending
	scores  []float64
	fitted  bool
}

// SelectOption configures a SelectKBest stage.
type SelectOption func(*SelectKBest)

// WithScoreFunc replaces the default ANOVA F-statistic.
func WithScoreFunc(f ScoreFunc) SelectOption {
	return func(s *SelectKBest) {
		s.score = f
	}
}

// NewSelectKBest creates a selection stage keeping the top k columns.
func NewSelectKBest(k int, opts ...SelectOption) *SelectKBest {
	s := &SelectKBest{k: k, score: FScore}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit scores every column against y and records the top-k column indices.
// If k exceeds the column count all columns are kept.
func (s *SelectKBest) Fit(X *mat.Dense, y []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, cols := X.Dims()
	if y == nil {
		return errors.New("selectkbest: labels required")
	}
	if len(y) != rows {
		return errors.New("selectkbest: label count does not match row count")
	}

	s.scores = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		s.scores[j] = s.score(col, y)
	}

	k := s.k
	if k <= 0 || k > cols {
		k = cols
	}

	order := make([]int, cols)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := s.scores[order[a]], s.scores[order[b]]
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		if math.IsNaN(sa) {
			return false
		}
		return sa > sb
	})

	s.support = append([]int(nil), order[:k]...)
	sort.Ints(s.support) // keep original column order
	s.fitted = true
	return nil
}

// Transform keeps only the fitted support columns.
func (s *SelectKBest) Transform(X *mat.Dense) (*mat.Dense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.fitted {
		return nil, ErrNotFitted
	}

	rows, cols := X.Dims()
	if cols != len(s.scores) {
		return nil, errDims(len(s.scores), cols)
	}

	out := mat.NewDense(rows, len(s.support), nil)
	for i := 0; i < rows; i++ {
		for j, idx := range s.support {
			out.Set(i, j, X.At(i, idx))
		}
	}
	return out, nil
}

// FitTransform fits the selector and transforms the reference matrix.
func (s *SelectKBest) FitTransform(X *mat.Dense, y []float64) (*mat.Dense, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Support returns the kept column indices in ascending order.
func (s *SelectKBest) Support() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.support))
	copy(out, s.support)
	return out
}

// Scores returns the fitted per-column relevance scores.
func (s *SelectKBest) Scores() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.scores))
	copy(out, s.scores)
	return out
}

func (s *SelectKBest) outputNames(in []string) []string {
	names := make([]string, 0, len(s.support))
	for _, idx := range s.support {
		if idx < len(in) {
			names = append(names, in[idx])
		}
	}
	return names
}

func (s *SelectKBest) reset() {
	s.support = nil
	s.scores = nil
	s.fitted = false
}

type selectParams struct {
	Support []int
	Scores  []float64
}

// Save serializes the fitted parameters.
func (s *SelectKBest) Save() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.fitted {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(selectParams{Support: s.support, Scores: s.scores}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores fitted parameters.
func (s *SelectKBest) Load(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p selectParams
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&p); err != nil {
		return err
	}
	s.support = p.Support
	s.scores = p.Scores
	s.fitted = true
	return nil
}

// FScore computes the one-way ANOVA F-statistic of a column grouped by
// label class. Columns that separate classes well score high; a column with
// zero within-class variance scores +Inf.
func FScore(column, y []float64) float64 {
	n := len(column)
	if n == 0 || len(y) != n {
		return 0
	}

	groups := make(map[float64][]float64)
	for i, label := range y {
		groups[label] = append(groups[label], column[i])
	}
	k := len(groups)
	if k < 2 || n <= k {
		return 0
	}

	var grand float64
	for _, v := range column {
		grand += v
	}
	grand /= float64(n)

	var ssb, ssw float64
	for _, g := range groups {
		var mean float64
		for _, v := range g {
			mean += v
		}
		mean /= float64(len(g))

		d := mean - grand
		ssb += float64(len(g)) * d * d
		for _, v := range g {
			dv := v - mean
			ssw += dv * dv
		}
	}

	msb := ssb / float64(k-1)
	msw := ssw / float64(n-k)
	if msw == 0 {
		if msb == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return msb / msw
}
