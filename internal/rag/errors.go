package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed request; nothing was executed.
	ErrValidation = errors.New("invalid request")
	// ErrRetrieval marks an embedding or index failure on the read path.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrNotFound marks a legitimate empty result: no grounding material or
	// no valid generated artifacts.
	ErrNotFound = errors.New("not found")
	// ErrGeneration marks unusable model output.
	ErrGeneration = errors.New("generation failed")
)

// GenerationError keeps the raw model output for diagnostics.
type GenerationError struct {
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGeneration, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrGeneration) match.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
