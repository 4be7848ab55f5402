package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/store"
)

// CardStateStore is a Postgres-backed store.CardStateStore. A missing row
// means the card has never been scheduled; unlike the notefile backend,
// card existence is not tracked separately from scheduling state.
type CardStateStore struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.CardStateStore = (*CardStateStore)(nil)

// NewCardStateStore creates a card state store over the given database.
func NewCardStateStore(db *sql.DB) *CardStateStore {
	if db == nil {
		panic("db cannot be nil for CardStateStore")
	}
	return &CardStateStore{db: db}
}

// Get implements store.CardStateStore. Returns (nil, nil) when no state
// has been persisted for the card.
func (s *CardStateStore) Get(ctx context.Context, id domain.CardID) (*domain.MemoryState, error) {
	const query = `
		SELECT due, stability, difficulty, elapsed_days, scheduled_days,
		       reps, lapses, phase, learning_step
		FROM card_states
		WHERE card_id = $1`

	state := &domain.MemoryState{}
	var phase string
	err := s.db.QueryRowContext(ctx, query, string(id)).Scan(
		&state.Due,
		&state.Stability,
		&state.Difficulty,
		&state.ElapsedDays,
		&state.ScheduledDays,
		&state.Reps,
		&state.Lapses,
		&phase,
		&state.LearningStep,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.NewStoreError("card_state", "get", "query card state", err)
	}
	if err := state.Phase.UnmarshalText([]byte(phase)); err != nil {
		return nil, store.NewStoreError("card_state", "get", "decode phase", err)
	}
	return state, nil
}

// Set implements store.CardStateStore with an upsert.
func (s *CardStateStore) Set(ctx context.Context, id domain.CardID, state *domain.MemoryState) error {
	if state == nil {
		return fmt.Errorf("%w: nil memory state", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	const query = `
		INSERT INTO card_states (
			card_id, due, stability, difficulty, elapsed_days,
			scheduled_days, reps, lapses, phase, learning_step, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (card_id) DO UPDATE SET
			due = EXCLUDED.due,
			stability = EXCLUDED.stability,
			difficulty = EXCLUDED.difficulty,
			elapsed_days = EXCLUDED.elapsed_days,
			scheduled_days = EXCLUDED.scheduled_days,
			reps = EXCLUDED.reps,
			lapses = EXCLUDED.lapses,
			phase = EXCLUDED.phase,
			learning_step = EXCLUDED.learning_step,
			updated_at = now()`

	_, err := s.db.ExecContext(ctx, query,
		string(id),
		state.Due,
		state.Stability,
		state.Difficulty,
		state.ElapsedDays,
		state.ScheduledDays,
		state.Reps,
		state.Lapses,
		state.Phase.String(),
		state.LearningStep,
	)
	if err != nil {
		return store.NewStoreError("card_state", "set", "upsert card state", err)
	}
	return nil
}
