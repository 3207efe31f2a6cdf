// Package io provides input/output utilities for flow-record ingestion and
// persistence.
package io

import (
	"context"

	"github.com/hed1ad/goflowprep/pkg/flow"
)

// BatchReader is the interface for reading flow records from a source.
type BatchReader interface {
	// ReadBatch returns the complete set of flow records.
	ReadBatch() (flow.Batch, error)

	// Stream returns a channel of records for incremental processing.
	Stream(ctx context.Context) (<-chan flow.Record, error)

	// Close releases resources.
	Close() error
}

// BatchWriter is the interface for persisting flow records.
type BatchWriter interface {
	// WriteBatch persists a complete batch.
	WriteBatch(batch flow.Batch) error

	// Close releases resources.
	Close() error
}
