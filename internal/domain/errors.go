package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound signals a read of a missing item.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidEmbeddingShape signals a dimension or length mismatch at write time.
	ErrInvalidEmbeddingShape = errors.New("invalid embedding shape")
	// ErrPayloadTooLarge signals a compressed matrix exceeding the store's per-field ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrCorruptPayload signals a matrix blob that cannot be decoded back to its declared shape.
	ErrCorruptPayload = errors.New("corrupt payload")
	// ErrScoring signals a numerical failure during late-interaction scoring.
	ErrScoring = errors.New("scoring failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrValidation signals a malformed request, rejected before any I/O.
	ErrValidation = errors.New("validation failed")
	// ErrPartialDelete signals that delete-by-document updated only one collection.
	ErrPartialDelete = errors.New("partial delete")
)

// PartialDeleteError wraps ErrPartialDelete with the per-collection counts
// removed before the failure.
type PartialDeleteError struct {
	VisualDeleted int
	TextDeleted   int
	Err           error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("%s: removed %d visual, %d text items: %v",
		ErrPartialDelete.Error(), e.VisualDeleted, e.TextDeleted, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return ErrPartialDelete }

// NewPartialDelete creates a partial delete error carrying the counts applied so far.
func NewPartialDelete(visualDeleted, textDeleted int, err error) error {
	return &PartialDeleteError{VisualDeleted: visualDeleted, TextDeleted: textDeleted, Err: err}
}
