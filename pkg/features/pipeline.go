package features

import (
	"fmt"
	"sort"

	"github.com/hed1ad/goflowprep/pkg/flow"
	"github.com/hed1ad/goflowprep/pkg/transform"
)

// Pipeline bundles the feature extractors with the transform chain that
// turns assembled features into model-ready input.
//
// The extractors and chain are injected; the pipeline never loads datasets
// or other hidden state at construction. One pipeline instance owns one set
// of fitted parameters: Fit must not run concurrently with anything else on
// the same instance, while Transform-only use is safe from multiple
// goroutines.
type Pipeline struct {
	extractors []Extractor
	chain      *transform.Chain
}

// NewPipeline creates a pipeline from the given chain and extractors.
func NewPipeline(chain *transform.Chain, extractors ...Extractor) *Pipeline {
	return &Pipeline{extractors: extractors, chain: chain}
}

// DefaultExtractors returns the standard extractor set: time-based features
// without per-packet options, per-flow statistics and protocol encodings.
func DefaultExtractors() []Extractor {
	te, _ := NewTimeExtractor() // no options cannot fail
	return []Extractor{te, NewStatisticalExtractor(), NewProtocolExtractor()}
}

// CreateFeatures assembles the raw feature table for a batch. The result is
// built fresh on every call; its row count and order match the input batch.
func (p *Pipeline) CreateFeatures(batch flow.Batch) (*Table, error) {
	return Assemble(batch, p.extractors...)
}

// Fit assembles features for the reference batch and fits the transform
// chain on them against the encoded labels.
func (p *Pipeline) Fit(reference flow.Batch) error {
	for _, e := range p.extractors {
		if f, ok := e.(interface{ Fit(flow.Batch) }); ok {
			f.Fit(reference)
		}
	}

	table, err := p.CreateFeatures(reference)
	if err != nil {
		return err
	}
	y := EncodeLabels(reference.Labels())
	if err := p.chain.Fit(table.Matrix(), y); err != nil {
		return fmt.Errorf("features: fit: %w", err)
	}
	return nil
}

// Transform assembles features for a batch and applies the fitted chain,
// returning the model-ready table. Fails with transform.ErrNotFitted before
// Fit.
func (p *Pipeline) Transform(batch flow.Batch) (*Table, error) {
	table, err := p.CreateFeatures(batch)
	if err != nil {
		return nil, err
	}

	out, err := p.chain.Transform(table.Matrix())
	if err != nil {
		return nil, err
	}
	names, err := p.chain.OutputNames(table.Names())
	if err != nil {
		return nil, err
	}
	return FromMatrix(out, names)
}

// Chain exposes the pipeline's transform chain.
func (p *Pipeline) Chain() *transform.Chain {
	return p.chain
}

// EncodeLabels maps class labels to stable numeric codes: unique labels are
// sorted and numbered from 0. The same label set always yields the same
// encoding.
func EncodeLabels(labels []string) []float64 {
	unique := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		unique[l] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for l := range unique {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	codes := make(map[string]float64, len(sorted))
	for i, l := range sorted {
		codes[l] = float64(i)
	}

	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = codes[l]
	}
	return out
}
