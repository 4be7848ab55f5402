package domain

import (
	"encoding"
	"fmt"
)

// Phase is the learning stage of a card.
type Phase int

const (
	PhaseNew        Phase = iota // Never rated; due immediately.
	PhaseLearning                // Working through initial learning steps.
	PhaseReview                  // In the long-term review cycle.
	PhaseRelearning              // Forgotten; working through relearning steps.
)

var (
	phaseNames = [...]string{
		PhaseNew:        "New",
		PhaseLearning:   "Learning",
		PhaseReview:     "Review",
		PhaseRelearning: "Relearning",
	}
	phaseByName = map[string]Phase{
		"New":        PhaseNew,
		"Learning":   PhaseLearning,
		"Review":     PhaseReview,
		"Relearning": PhaseRelearning,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Phase(0)
	_ encoding.TextMarshaler   = Phase(0)
	_ encoding.TextUnmarshaler = (*Phase)(nil)
)

// IsValid reports whether p is one of the defined phases.
func (p Phase) IsValid() bool {
	return p >= PhaseNew && p <= PhaseRelearning
}

// String returns the name of the phase ("New", "Learning", "Review",
// "Relearning"). Invalid values render as "Phase(n)".
func (p Phase) String() string {
	if p.IsValid() {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPhase, int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	v, ok := phaseByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPhase, text)
	}
	*p = v
	return nil
}
