package features

import (
	"fmt"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// Extractor derives named feature columns from a flow batch.
type Extractor interface {
	// Name identifies the extractor in errors and logs.
	Name() string

	// Features lists the feature names this extractor emits, in order.
	Features() []string

	// Requires lists the record fields every record in the batch must
	// carry for Extract to run.
	Requires() []flow.Field

	// Extract returns one column per feature, each the same length as the
	// input batch.
	Extract(batch flow.Batch) (map[string][]float64, error)
}

// Assemble runs the extractors over the batch and unions their outputs by
// feature name into one table. Feature names are a flat global namespace: a
// duplicate name across extractors fails with ErrSchemaConflict, and any
// column whose length differs from the batch fails with ErrLengthMismatch.
// Row alignment is positional and preserved. An empty batch fails with
// ErrEmptyBatch: there are no rows to build a table from.
func Assemble(batch flow.Batch, extractors ...Extractor) (*Table, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	var required []flow.Field
	for _, e := range extractors {
		required = append(required, e.Requires()...)
	}
	if err := batch.Check(required...); err != nil {
		return nil, err
	}

	table := NewTable(len(batch))
	for _, e := range extractors {
		out, err := e.Extract(batch)
		if err != nil {
			return nil, fmt.Errorf("extractor %q: %w", e.Name(), err)
		}
		for _, name := range e.Features() {
			col, ok := out[name]
			if !ok {
				return nil, fmt.Errorf("extractor %q: %w: declared feature %q not emitted",
					e.Name(), ErrLengthMismatch, name)
			}
			if err := table.Add(name, col); err != nil {
				return nil, fmt.Errorf("extractor %q: %w", e.Name(), err)
			}
		}
	}
	return table, nil
}
