package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallbox/recallbox/internal/domain"
)

var testNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestInitialState(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	state := svc.InitialState(testNow)

	assert.Equal(t, domain.PhaseNew, state.Phase)
	assert.True(t, state.Due.Equal(testNow))
	assert.Equal(t, uint(0), state.Reps)
	assert.Equal(t, uint(0), state.Lapses)
	require.NoError(t, state.Validate())
}

func TestApplyRatingFirstRating(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()

	tests := []struct {
		name      string
		rating    domain.Rating
		wantPhase domain.Phase
	}{
		{"again stays in learning", domain.RatingAgain, domain.PhaseLearning},
		{"hard stays in learning", domain.RatingHard, domain.PhaseLearning},
		{"good advances a step", domain.RatingGood, domain.PhaseLearning},
		{"easy graduates", domain.RatingEasy, domain.PhaseReview},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			state := svc.InitialState(testNow)
			next, err := svc.ApplyRating(state, tc.rating, testNow)
			require.NoError(t, err)

			assert.Equal(t, tc.wantPhase, next.Phase)
			assert.Equal(t, uint(1), next.Reps)
			assert.Equal(t, uint(0), next.Lapses)
			assert.Equal(t, uint(0), next.ElapsedDays, "first rating has no elapsed days")
			assert.True(t, next.Due.After(testNow))
			assert.Positive(t, next.Stability)
			assert.GreaterOrEqual(t, next.Difficulty, 1.0)
			assert.LessOrEqual(t, next.Difficulty, 10.0)

			// Input state untouched.
			assert.Equal(t, domain.PhaseNew, state.Phase)
			assert.Equal(t, uint(0), state.Reps)
		})
	}
}

func TestApplyRatingGoodAndEasyAlwaysResolve(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	review := &domain.MemoryState{
		Due:        testNow.Add(-48 * time.Hour),
		Stability:  5.0,
		Difficulty: 5.0,
		Phase:      domain.PhaseReview,
		Reps:       4,
	}

	for _, rating := range []domain.Rating{domain.RatingGood, domain.RatingEasy} {
		next, err := svc.ApplyRating(review, rating, testNow)
		require.NoError(t, err)
		assert.True(t, next.Due.After(testNow),
			"%s on a review card must push due past now", rating)
		assert.Equal(t, domain.PhaseReview, next.Phase)
	}
}

func TestApplyRatingAgainOnReviewLapses(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	review := &domain.MemoryState{
		Due:        testNow.Add(-24 * time.Hour),
		Stability:  10.0,
		Difficulty: 4.0,
		Phase:      domain.PhaseReview,
		Reps:       6,
		Lapses:     1,
	}

	next, err := svc.ApplyRating(review, domain.RatingAgain, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseRelearning, next.Phase)
	assert.Equal(t, uint(2), next.Lapses)
	assert.Equal(t, uint(7), next.Reps)
	assert.Less(t, next.Stability, review.Stability, "forgetting shrinks stability")
	// Default relearning step is 10 minutes: resolvable within the same day.
	assert.True(t, next.Due.Before(testNow.Add(24*time.Hour)))
}

func TestApplyRatingEmptyStepsFallBackToWholeDays(t *testing.T) {
	t.Parallel()

	svc, err := NewService(Config{
		EnableShortTerm: true,
		LearningSteps:   []time.Duration{},
		RelearningSteps: []time.Duration{},
	})
	require.NoError(t, err)

	next, err := svc.ApplyRating(svc.InitialState(testNow), domain.RatingAgain, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseReview, next.Phase)
	assert.True(t, next.Due.Sub(testNow) >= 24*time.Hour,
		"no steps means whole-day scheduling even for Again")
}

func TestApplyRatingLongTermOnlyIgnoresSteps(t *testing.T) {
	t.Parallel()

	svc, err := NewService(Config{EnableShortTerm: false})
	require.NoError(t, err)

	next, err := svc.ApplyRating(svc.InitialState(testNow), domain.RatingGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseReview, next.Phase)
	assert.True(t, next.Due.Sub(testNow) >= 24*time.Hour)
}

func TestApplyRatingDeterministic(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	state := &domain.MemoryState{
		Due:        testNow.Add(-72 * time.Hour),
		Stability:  3.2,
		Difficulty: 6.1,
		Phase:      domain.PhaseReview,
		Reps:       2,
	}

	first, err := svc.ApplyRating(state, domain.RatingGood, testNow)
	require.NoError(t, err)
	second, err := svc.ApplyRating(state, domain.RatingGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must produce identical outputs")
}

func TestApplyRatingValidation(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()

	_, err := svc.ApplyRating(nil, domain.RatingGood, testNow)
	require.ErrorIs(t, err, ErrNilState)

	_, err = svc.ApplyRating(svc.InitialState(testNow), domain.Rating(0), testNow)
	require.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.ApplyRating(svc.InitialState(testNow), domain.Rating(5), testNow)
	require.ErrorIs(t, err, ErrInvalidRating)
}

func TestPostponeReview(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	state := &domain.MemoryState{
		Due:       testNow.Add(24 * time.Hour),
		Stability: 4.0,
		Phase:     domain.PhaseReview,
		Reps:      1,
	}

	next, err := svc.PostponeReview(state, 3, testNow)
	require.NoError(t, err)
	assert.True(t, next.Due.Equal(state.Due.AddDate(0, 0, 3)))
	assert.Equal(t, state.Reps, next.Reps, "postpone records no rating")

	_, err = svc.PostponeReview(state, 0, testNow)
	require.ErrorIs(t, err, ErrInvalidDays)

	_, err = svc.PostponeReview(nil, 1, testNow)
	require.ErrorIs(t, err, ErrNilState)
}

func TestRetrievabilityDecays(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	state := &domain.MemoryState{
		Due:        testNow,
		Stability:  5.0,
		Difficulty: 5.0,
		Phase:      domain.PhaseReview,
		Reps:       1,
	}

	atDue := svc.Retrievability(state, testNow)
	later := svc.Retrievability(state, testNow.Add(10*24*time.Hour))

	assert.Greater(t, atDue, later, "retrievability decreases with elapsed time")
	assert.Zero(t, svc.Retrievability(nil, testNow))
	assert.Zero(t, svc.Retrievability(svc.InitialState(testNow), testNow))
}

func TestNewServiceWeightValidation(t *testing.T) {
	t.Parallel()

	// The 19-entry long-term vector is accepted as-is.
	_, err := NewService(Config{Weights: DefaultWeights[:WeightCountLongTerm]})
	require.NoError(t, err)

	_, err = NewService(Config{Weights: make([]float64, 7)})
	require.ErrorIs(t, err, ErrInvalidWeights)

	bad := make([]float64, WeightCountFull)
	copy(bad, DefaultWeights[:])
	bad[4] = 500 // difficulty base far out of bounds
	_, err = NewService(Config{Weights: bad})
	require.ErrorIs(t, err, ErrInvalidWeights)
}

func TestClampWeights(t *testing.T) {
	t.Parallel()

	ws := make([]float64, WeightCountFull)
	copy(ws, DefaultWeights[:])
	ws[0] = -5
	ws[4] = 99

	ClampWeights(ws)
	assert.Equal(t, LowerBounds[0], ws[0])
	assert.Equal(t, UpperBounds[4], ws[4])
	require.NoError(t, ValidateWeights(ws))
}
