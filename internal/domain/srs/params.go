package srs

import (
	"fmt"
	"time"
)

// Weight vector lengths accepted by the model. The long-term vector carries
// w[0..18]; the full vector adds the short-term stability exponent w[19]
// and the trainable decay w[20], which are only exercised when sub-day
// learning steps are enabled.
const (
	WeightCountLongTerm = 19
	WeightCountFull     = 21
)

// DefaultWeights are the model's default parameter values.
var DefaultWeights = [WeightCountFull]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability per first rating
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy bonus / short-term
	0.1542, // w[20] decay exponent
}

// LowerBounds and UpperBounds constrain each weight during validation and
// optimization.
var (
	LowerBounds = [WeightCountFull]float64{
		0.001, 0.001, 0.001, 0.001,
		1.0, 0.001, 0.001, 0.001,
		0.0, 0.0, 0.001, 0.001,
		0.001, 0.001, 0.0, 0.0,
		1.0, 0.0, 0.0, 0.0,
		0.1,
	}
	UpperBounds = [WeightCountFull]float64{
		100.0, 100.0, 100.0, 100.0,
		10.0, 4.0, 4.0, 0.75,
		4.5, 0.8, 3.5, 5.0,
		0.25, 0.9, 4.0, 1.0,
		6.0, 2.0, 2.0, 0.8,
		0.8,
	}
)

// Config configures the scheduling model. The zero value is usable:
// Normalize fills every unset field with its default.
type Config struct {
	// Weights is the model parameter vector: 19 entries (long-term set) or
	// 21 (full set). Empty means DefaultWeights.
	Weights []float64

	// DesiredRetention is the target recall probability at review time.
	// Zero means 0.9.
	DesiredRetention float64

	// EnableShortTerm toggles use of the sub-day learning and relearning
	// step arrays. When false, all scheduling is whole-day and the step
	// arrays are ignored.
	EnableShortTerm bool

	// LearningSteps are the sub-day intervals a new card walks through
	// before graduating to Review. Nil means [1m, 10m]; an explicit empty
	// slice means no steps (whole-day fallback).
	LearningSteps []time.Duration

	// RelearningSteps are the sub-day intervals after a lapse.
	// Nil means [10m]; empty means no steps.
	RelearningSteps []time.Duration

	// MaximumIntervalDays caps the scheduled interval. Zero means 36500.
	MaximumIntervalDays int
}

// Normalize returns a copy of the config with defaults applied.
// It returns an error for out-of-range values.
func (c Config) Normalize() (Config, error) {
	out := c

	if len(out.Weights) == 0 {
		out.Weights = DefaultWeights[:]
	}
	if len(out.Weights) != WeightCountLongTerm && len(out.Weights) != WeightCountFull {
		return Config{}, fmt.Errorf(
			"%w: got %d weights, want %d or %d",
			ErrInvalidWeights, len(out.Weights), WeightCountLongTerm, WeightCountFull)
	}

	if out.DesiredRetention == 0 {
		out.DesiredRetention = 0.9
	}
	if out.DesiredRetention < 0 || out.DesiredRetention > 1 {
		return Config{}, fmt.Errorf(
			"srs: desired retention %f out of range (0, 1]", out.DesiredRetention)
	}

	if out.MaximumIntervalDays == 0 {
		out.MaximumIntervalDays = 36500
	}
	if out.MaximumIntervalDays < 0 {
		return Config{}, fmt.Errorf(
			"srs: maximum interval %d must be positive", out.MaximumIntervalDays)
	}

	if out.LearningSteps == nil {
		out.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	}
	if out.RelearningSteps == nil {
		out.RelearningSteps = []time.Duration{10 * time.Minute}
	}

	return out, nil
}

// expandWeights widens a validated 19- or 21-length vector to the full
// internal array, filling the short-term tail with defaults.
func expandWeights(ws []float64) [WeightCountFull]float64 {
	var full [WeightCountFull]float64
	copy(full[:], DefaultWeights[:])
	copy(full[:], ws)
	return full
}

// ValidateWeights checks that every weight is within its bounds.
// Accepts 19- or 21-length vectors.
func ValidateWeights(ws []float64) error {
	if len(ws) != WeightCountLongTerm && len(ws) != WeightCountFull {
		return fmt.Errorf(
			"%w: got %d weights, want %d or %d",
			ErrInvalidWeights, len(ws), WeightCountLongTerm, WeightCountFull)
	}
	for i, w := range ws {
		if w < LowerBounds[i] || w > UpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidWeights, i, w, LowerBounds[i], UpperBounds[i])
		}
	}
	return nil
}

// ClampWeights constrains each weight to [LowerBounds, UpperBounds].
func ClampWeights(ws []float64) {
	for i := range ws {
		if ws[i] < LowerBounds[i] {
			ws[i] = LowerBounds[i]
		}
		if ws[i] > UpperBounds[i] {
			ws[i] = UpperBounds[i]
		}
	}
}
