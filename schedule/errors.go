/*
errors.go - Error taxonomy for the scheduling core

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any store mutation
  2. Conflict errors - overlapping slot detected, carry the conflicting id
  3. Not-found errors - referenced record does not exist

Unexpected storage faults are NOT part of this taxonomy; they bubble up
wrapped as plain infrastructure errors so callers can tell them apart.
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSlotConflict is the sentinel behind *ConflictError.
	ErrSlotConflict = errors.New("slot conflicts with an existing slot")

	// ErrSlotNotFound is returned when a referenced slot doesn't exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrLessonNotFound is returned when a referenced lesson doesn't exist.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrRoomNotFound is returned when a referenced room doesn't exist.
	ErrRoomNotFound = errors.New("room not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError rejects malformed input before any domain logic runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports an overlapping slot, naming the existing slot for
// diagnostics.
type ConflictError struct {
	SlotID            string // candidate (empty on create)
	ConflictingSlotID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot overlaps existing slot %s", e.ConflictingSlotID)
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrLessonNotFound) ||
		errors.Is(err, ErrRoomNotFound)
}

// IsClientError reports whether the error is the caller's fault (400/409
// territory) rather than an infrastructure failure.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrSlotConflict)
}
