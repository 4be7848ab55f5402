package srs

import "errors"

// Common errors returned by the scheduling model.
var (
	ErrNilState       = errors.New("srs: memory state cannot be nil")
	ErrInvalidRating  = errors.New("srs: invalid rating")
	ErrInvalidWeights = errors.New("srs: weights out of bounds")
	ErrInvalidDays    = errors.New("srs: postpone days must be at least 1")
)
