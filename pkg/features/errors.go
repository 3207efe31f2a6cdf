package features

import "errors"

var (
	// ErrSchemaConflict indicates two extractors emitted the same feature
	// name. Feature names are a flat global namespace; extractors must
	// prefix their names if collisions are possible.
	ErrSchemaConflict = errors.New("features: schema conflict")

	// ErrLengthMismatch indicates an extractor output column whose length
	// differs from the input batch.
	ErrLengthMismatch = errors.New("features: length mismatch")

	// ErrNotFitted indicates an inter-flow feature was requested before
	// reference statistics were fitted.
	ErrNotFitted = errors.New("features: not fitted")

	// ErrNoWindow indicates burst-rate extraction was enabled without an
	// explicit window configuration.
	ErrNoWindow = errors.New("features: burst window not configured")

	// ErrEmptyBatch indicates feature assembly was requested for a batch
	// with no records.
	ErrEmptyBatch = errors.New("features: empty batch")
)
