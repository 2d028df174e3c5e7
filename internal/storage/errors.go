package storage

import (
	"errors"
	"fmt"
)

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyVector       = errors.New("empty vector")
	ErrUnknownBackend    = errors.New("unknown vector store backend")
)

// DimensionMismatchError reports a vector whose length differs from the
// index's established dimensionality.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%v: got %d, expected %d", ErrDimensionMismatch, e.Got, e.Expected)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// checkDimension validates vector against an established dimension. A zero
// expected dimension accepts any non-empty vector.
func checkDimension(expected int, vector []float32) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if expected != 0 && len(vector) != expected {
		return &DimensionMismatchError{Expected: expected, Got: len(vector)}
	}
	return nil
}
