package features

import (
	"math"
	"sort"
	"sync"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// Statistical feature names.
const (
	FeaturePktSizeMean   = "pkt_size_mean"
	FeaturePktSizeStd    = "pkt_size_std"
	FeaturePktSizeMin    = "pkt_size_min"
	FeaturePktSizeMax    = "pkt_size_max"
	FeaturePktSizeQ1     = "pkt_size_q1"
	FeaturePktSizeMedian = "pkt_size_median"
	FeaturePktSizeQ3     = "pkt_size_q3"
	FeatureBytesZScore   = "bytes_zscore"
)

// Scope says whether a feature is computed within a single flow or against
// statistics of a whole reference batch.
type Scope int

const (
	// ScopeIntraFlow features use only the record itself.
	ScopeIntraFlow Scope = iota
	// ScopeInterFlow features compare the record against reference-batch
	// statistics and must be fitted on the training partition only.
	ScopeInterFlow
)

// StatisticalExtractor derives descriptive statistics over per-packet sizes.
//
// All packet-size features are intra-flow. The optional bytes_zscore feature
// is inter-flow: it standardizes each flow's byte total against the mean and
// standard deviation of a reference batch. To keep evaluation data from
// leaking into the statistics, Fit must be called with the training
// partition before Extract, and is never refitted implicitly.
type StatisticalExtractor struct {
	mu sync.RWMutex

	withZScore bool
	refMean    float64
	refStd     float64
	fitted     bool
}

// StatOption configures a StatisticalExtractor.
type StatOption func(*StatisticalExtractor)

// WithBytesZScore enables the inter-flow bytes_zscore feature.
func WithBytesZScore() StatOption {
	return func(e *StatisticalExtractor) {
		e.withZScore = true
	}
}

// NewStatisticalExtractor creates a statistical extractor.
func NewStatisticalExtractor(opts ...StatOption) *StatisticalExtractor {
	e := &StatisticalExtractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the extractor.
func (e *StatisticalExtractor) Name() string { return "statistical" }

// Features lists the emitted feature names.
func (e *StatisticalExtractor) Features() []string {
	names := []string{
		FeaturePktSizeMean,
		FeaturePktSizeStd,
		FeaturePktSizeMin,
		FeaturePktSizeMax,
		FeaturePktSizeQ1,
		FeaturePktSizeMedian,
		FeaturePktSizeQ3,
	}
	if e.withZScore {
		names = append(names, FeatureBytesZScore)
	}
	return names
}

// FeatureScope reports whether a feature of this extractor is intra-flow or
// inter-flow.
func (e *StatisticalExtractor) FeatureScope(name string) Scope {
	if name == FeatureBytesZScore {
		return ScopeInterFlow
	}
	return ScopeIntraFlow
}

// Requires lists the record fields the extractor needs.
func (e *StatisticalExtractor) Requires() []flow.Field {
	fields := []flow.Field{flow.FieldPacketSizes}
	if e.withZScore {
		fields = append(fields, flow.FieldSrcBytes, flow.FieldDstBytes)
	}
	return fields
}

// Fit learns the reference statistics for inter-flow features from the
// designated reference batch, typically the training partition.
func (e *StatisticalExtractor) Fit(reference flow.Batch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum float64
	for i := range reference {
		sum += float64(reference[i].TotalBytes())
	}
	mean := sum / float64(len(reference))

	var variance float64
	for i := range reference {
		d := float64(reference[i].TotalBytes()) - mean
		variance += d * d
	}
	variance /= float64(len(reference))

	e.refMean = mean
	e.refStd = math.Sqrt(variance)
	if e.refStd == 0 {
		e.refStd = 1
	}
	e.fitted = true
}

// Extract computes the statistical columns. If bytes_zscore is enabled the
// extractor must have been fitted first.
func (e *StatisticalExtractor) Extract(batch flow.Batch) (map[string][]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.withZScore && !e.fitted {
		return nil, ErrNotFitted
	}

	n := len(batch)
	out := map[string][]float64{
		FeaturePktSizeMean:   make([]float64, n),
		FeaturePktSizeStd:    make([]float64, n),
		FeaturePktSizeMin:    make([]float64, n),
		FeaturePktSizeMax:    make([]float64, n),
		FeaturePktSizeQ1:     make([]float64, n),
		FeaturePktSizeMedian: make([]float64, n),
		FeaturePktSizeQ3:     make([]float64, n),
	}

	for i := range batch {
		sizes := batch[i].PacketSizes
		mean, std := meanStd(sizes)
		out[FeaturePktSizeMean][i] = mean
		out[FeaturePktSizeStd][i] = std
		out[FeaturePktSizeMin][i] = minOf(sizes)
		out[FeaturePktSizeMax][i] = maxOf(sizes)
		out[FeaturePktSizeQ1][i] = quantile(sizes, 0.25)
		out[FeaturePktSizeMedian][i] = quantile(sizes, 0.5)
		out[FeaturePktSizeQ3][i] = quantile(sizes, 0.75)
	}

	if e.withZScore {
		z := make([]float64, n)
		for i := range batch {
			z[i] = (float64(batch[i].TotalBytes()) - e.refMean) / e.refStd
		}
		out[FeatureBytesZScore] = z
	}

	return out, nil
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// quantile computes the q-th quantile with linear interpolation.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
