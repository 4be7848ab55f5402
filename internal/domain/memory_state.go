package domain

import "time"

// MemoryState is the scheduling state of a single card. It is created on
// the card's first scheduling and mutated in place by each rating; the
// engine never deletes it.
//
// Invariants: Due is always set, Reps >= Lapses, and Phase is New only
// before the first rating has been applied.
type MemoryState struct {
	Due           time.Time `json:"due"`
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	ElapsedDays   uint      `json:"elapsed_days"`
	ScheduledDays uint      `json:"scheduled_days"`
	Reps          uint      `json:"reps"`
	Lapses        uint      `json:"lapses"`
	Phase         Phase     `json:"phase"`

	// LearningStep is the position within the learning or relearning step
	// array. Meaningful only while Phase is Learning or Relearning.
	LearningStep int `json:"learning_step"`
}

// Validate checks the MemoryState invariants.
func (s *MemoryState) Validate() error {
	if s.Due.IsZero() {
		return ErrZeroDue
	}
	if s.Lapses > s.Reps {
		return ErrLapsesExceedReps
	}
	if !s.Phase.IsValid() {
		return ErrInvalidPhase
	}
	if s.Phase == PhaseNew && s.Reps > 0 {
		return ErrNewPhaseAfterReview
	}
	return nil
}

// Clone returns a copy of the state.
func (s *MemoryState) Clone() *MemoryState {
	out := *s
	return &out
}

// IsDue reports whether the card should be presented at the given time.
// New cards are always due.
func (s *MemoryState) IsDue(now time.Time) bool {
	return s.Phase == PhaseNew || !s.Due.After(now)
}
