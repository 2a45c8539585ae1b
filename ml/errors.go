package ml

import "errors"

var (
	// ErrModelNotFound means no registry entry, no disk artifact and no
	// fallback eligibility for the requested model name.
	ErrModelNotFound = errors.New("model not found")

	// ErrDataSourceMissing means the structured training source is absent.
	ErrDataSourceMissing = errors.New("training data source missing")

	// ErrInvalidTrainingSet covers empty, mismatched-length or
	// mixed-schema training input.
	ErrInvalidTrainingSet = errors.New("invalid training set")

	// ErrSchemaMismatch is returned by a pipeline fed an input of the
	// wrong schema lineage. The inference service absorbs it into
	// placeholder predictions and never surfaces it to callers.
	ErrSchemaMismatch = errors.New("input schema does not match model schema")
)
