// Package dataset loads the labeled reference partitions used to fit and
// evaluate the feature pipeline.
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/hed1ad/goflowprep/pkg/flow"
	flowio "github.com/hed1ad/goflowprep/pkg/io"
	csvio "github.com/hed1ad/goflowprep/pkg/io/csv"
)

// DefaultSeed is the fixed shuffle seed for reproducible row order.
const DefaultSeed int64 = 42

// Split holds the two reference partitions. The training partition is the
// only data transform parameters may be fitted on; the evaluation partition
// is transformed with those parameters, never refitted.
type Split struct {
	Train flow.Batch
	Eval  flow.Batch
}

// Load reads one labeled partition from a CSV file.
func Load(path string) (flow.Batch, error) {
	r, err := csvio.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer r.Close()

	batch, err := ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	return batch, nil
}

// ReadFrom drains any batch reader into memory. Callers with non-CSV
// sources can pass their own reader implementation.
func ReadFrom(r flowio.BatchReader) (flow.Batch, error) {
	return r.ReadBatch()
}

// Shuffle returns a copy of the batch with rows permuted by the seed. The
// permutation is applied once at load time and the order is frozen after.
func Shuffle(batch flow.Batch, seed int64) flow.Batch {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(batch))

	out := make(flow.Batch, len(batch))
	for i, j := range perm {
		out[i] = batch[j]
	}
	return out
}

// LoadSplit loads both partitions and shuffles each once with the seed.
func LoadSplit(trainPath, evalPath string, seed int64) (*Split, error) {
	train, err := Load(trainPath)
	if err != nil {
		return nil, err
	}
	eval, err := Load(evalPath)
	if err != nil {
		return nil, err
	}
	return &Split{
		Train: Shuffle(train, seed),
		Eval:  Shuffle(eval, seed),
	}, nil
}
