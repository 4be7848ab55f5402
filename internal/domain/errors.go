package domain

import "errors"

// Common validation errors for domain entities.
var (
	ErrInvalidRating       = errors.New("invalid rating")
	ErrInvalidPhase        = errors.New("invalid phase")
	ErrZeroDue             = errors.New("memory state due time must be set")
	ErrLapsesExceedReps    = errors.New("lapses cannot exceed reps")
	ErrNewPhaseAfterReview = errors.New("phase cannot be New after a rating has been applied")
)
