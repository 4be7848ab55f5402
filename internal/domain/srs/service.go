package srs

import (
	"math"
	"time"

	"github.com/recallbox/recallbox/internal/domain"
)

// Service is the scheduling model: a pure function from (prior memory
// state, rating, time) to the next memory state. Implementations must be
// deterministic — identical inputs always produce identical outputs, with
// no clock reads beyond the passed time.
type Service interface {
	// InitialState returns the state of a card that has never been rated:
	// phase New, due immediately, model-default memory values.
	InitialState(now time.Time) *domain.MemoryState

	// ApplyRating computes the next memory state for a rating applied at
	// the given time. The input state is not mutated.
	ApplyRating(
		state *domain.MemoryState,
		rating domain.Rating,
		now time.Time,
	) (*domain.MemoryState, error)

	// PostponeReview pushes the card's due time forward by the given number
	// of whole days without recording a rating.
	PostponeReview(
		state *domain.MemoryState,
		days int,
		now time.Time,
	) (*domain.MemoryState, error)

	// Retrievability returns the predicted recall probability at the given
	// time, or 0 for a card that has never been rated.
	Retrievability(state *domain.MemoryState, now time.Time) float64
}

// defaultService is the standard implementation of Service.
type defaultService struct {
	cfg  Config
	algo algo
}

// Verify interface compliance at compile time.
var _ Service = (*defaultService)(nil)

// NewService creates a scheduling model from the given config.
// Zero-value fields are filled with defaults; invalid values return an error.
func NewService(cfg Config) (Service, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if err := ValidateWeights(normalized.Weights); err != nil {
		return nil, err
	}
	return &defaultService{
		cfg:  normalized,
		algo: newAlgo(expandWeights(normalized.Weights)),
	}, nil
}

// NewDefaultService creates a scheduling model with default parameters and
// sub-day learning steps enabled.
func NewDefaultService() Service {
	svc, err := NewService(Config{EnableShortTerm: true})
	if err != nil {
		// Defaults are statically valid.
		panic(err)
	}
	return svc
}

// InitialState implements Service.
func (s *defaultService) InitialState(now time.Time) *domain.MemoryState {
	return &domain.MemoryState{
		Due:   now,
		Phase: domain.PhaseNew,
	}
}

// ApplyRating implements Service.
func (s *defaultService) ApplyRating(
	state *domain.MemoryState,
	rating domain.Rating,
	now time.Time,
) (*domain.MemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if !rating.IsValid() {
		return nil, ErrInvalidRating
	}

	next := state.Clone()

	// Elapsed time since the card was last scheduled. Zero for a card's
	// first rating.
	var elapsed float64
	if state.Phase != domain.PhaseNew {
		elapsed = now.Sub(state.Due).Hours() / 24.0
		if elapsed < 0 {
			elapsed = 0
		}
	}
	next.ElapsedDays = uint(elapsed)

	s.updateMemory(next, state, rating, elapsed)

	next.Reps++
	if rating == domain.RatingAgain && state.Phase == domain.PhaseReview {
		next.Lapses++
	}

	interval := s.transition(next, state.Phase, rating)
	next.Due = now.Add(interval)
	next.ScheduledDays = uint(math.Floor(interval.Hours() / 24.0))

	return next, nil
}

// PostponeReview implements Service.
func (s *defaultService) PostponeReview(
	state *domain.MemoryState,
	days int,
	now time.Time,
) (*domain.MemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}
	next := state.Clone()
	next.Due = state.Due.AddDate(0, 0, days)
	if next.Due.Before(now) {
		next.Due = now.AddDate(0, 0, days)
	}
	return next, nil
}

// Retrievability implements Service.
func (s *defaultService) Retrievability(state *domain.MemoryState, now time.Time) float64 {
	if state == nil || state.Phase == domain.PhaseNew || state.Stability <= 0 {
		return 0
	}
	elapsed := now.Sub(state.Due).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return s.algo.retrievability(elapsed, state.Stability)
}

// updateMemory writes the new stability and difficulty into next based on
// the prior state.
func (s *defaultService) updateMemory(
	next, prior *domain.MemoryState,
	rating domain.Rating,
	elapsed float64,
) {
	if prior.Phase == domain.PhaseNew {
		next.Stability = s.algo.initStability(rating)
		next.Difficulty = s.algo.initDifficulty(rating, true)
		return
	}

	if s.cfg.EnableShortTerm && elapsed < 1 {
		next.Stability = s.algo.shortTermStability(prior.Stability, rating)
	} else {
		r := s.algo.retrievability(elapsed, prior.Stability)
		next.Stability = s.algo.nextStability(prior.Difficulty, prior.Stability, r, rating)
	}
	next.Difficulty = s.algo.nextDifficulty(prior.Difficulty, rating)
}

// stepsForPhase returns the effective step array for the phase family.
// Steps are only honored when short-term scheduling is enabled.
func (s *defaultService) stepsForPhase(phase domain.Phase) []time.Duration {
	if !s.cfg.EnableShortTerm {
		return nil
	}
	switch phase {
	case domain.PhaseNew, domain.PhaseLearning:
		return s.cfg.LearningSteps
	case domain.PhaseRelearning:
		return s.cfg.RelearningSteps
	default:
		return nil
	}
}

// transition applies the phase state machine and returns the scheduling
// interval. It mutates next's Phase and LearningStep.
func (s *defaultService) transition(
	next *domain.MemoryState,
	from domain.Phase,
	rating domain.Rating,
) time.Duration {
	switch from {
	case domain.PhaseReview:
		return s.transitionReview(next, rating)
	default:
		return s.transitionLearning(next, from, rating)
	}
}

// transitionLearning handles New, Learning and Relearning cards.
// Empty step configuration falls back to whole-day scheduling.
func (s *defaultService) transitionLearning(
	next *domain.MemoryState,
	from domain.Phase,
	rating domain.Rating,
) time.Duration {
	steps := s.stepsForPhase(from)
	step := next.LearningStep

	family := domain.PhaseLearning
	if from == domain.PhaseRelearning {
		family = domain.PhaseRelearning
	}

	// Empty steps or step overflow graduates to Review.
	if len(steps) == 0 || (step >= len(steps) && rating != domain.RatingAgain) {
		return s.graduate(next)
	}

	switch rating {
	case domain.RatingAgain:
		next.Phase = family
		next.LearningStep = 0
		return steps[0]

	case domain.RatingHard:
		next.Phase = family
		if step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if step == 0 && len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[step]

	case domain.RatingGood:
		nextStep := step + 1
		if nextStep >= len(steps) {
			return s.graduate(next)
		}
		next.Phase = family
		next.LearningStep = nextStep
		return steps[nextStep]

	default: // Easy
		return s.graduate(next)
	}
}

// transitionReview handles cards in the long-term review cycle.
func (s *defaultService) transitionReview(
	next *domain.MemoryState,
	rating domain.Rating,
) time.Duration {
	if rating == domain.RatingAgain {
		relearn := s.stepsForPhase(domain.PhaseRelearning)
		if len(relearn) > 0 {
			next.Phase = domain.PhaseRelearning
			next.LearningStep = 0
			return relearn[0]
		}
		// Empty relearning steps stay in Review with a whole-day interval.
	}
	return s.graduate(next)
}

// graduate moves the card into the Review phase with a whole-day interval.
func (s *defaultService) graduate(next *domain.MemoryState) time.Duration {
	next.Phase = domain.PhaseReview
	next.LearningStep = 0
	days := s.algo.nextInterval(next.Stability, s.cfg.DesiredRetention, s.cfg.MaximumIntervalDays)
	return time.Duration(days) * 24 * time.Hour
}
