package ml

import "errors"

// Error taxonomy for the model lifecycle. The API layer maps these to
// status codes; anything else surfaces as an internal error.
var (
	// ErrNoData is returned when a training fetch yields zero rows.
	ErrNoData = errors.New("no training data found")

	// ErrInsufficientData is returned when fewer labeled rows remain than
	// the configured minimum. Training never starts in that case.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrNotFound is returned when a single-key feature lookup misses, or
	// when the store reports more than one row for a composite key.
	ErrNotFound = errors.New("feature vector not found")
)
