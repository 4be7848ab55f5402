package postgres

import (
	"context"
	"database/sql"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/store"
)

// ReviewLogStore is a Postgres-backed store.ReviewLogStore. Write order is
// preserved by the serial primary key.
type ReviewLogStore struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// NewReviewLogStore creates a review log store over the given database.
func NewReviewLogStore(db *sql.DB) *ReviewLogStore {
	if db == nil {
		panic("db cannot be nil for ReviewLogStore")
	}
	return &ReviewLogStore{db: db}
}

// Append implements store.ReviewLogStore.
func (s *ReviewLogStore) Append(ctx context.Context, entry domain.LogEntry) error {
	const query = `
		INSERT INTO review_log (card_id, reviewed_at, rating, elapsed_days)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query,
		string(entry.CardID),
		entry.Timestamp,
		int(entry.Rating),
		entry.ElapsedDays,
	)
	if err != nil {
		return store.NewStoreError("review_log", "append", "insert entry", err)
	}
	return nil
}

// ReadAll implements store.ReviewLogStore.
func (s *ReviewLogStore) ReadAll(ctx context.Context) ([]domain.LogEntry, error) {
	const query = `
		SELECT card_id, reviewed_at, rating, elapsed_days
		FROM review_log
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.NewStoreError("review_log", "read_all", "query entries", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []domain.LogEntry
	for rows.Next() {
		var (
			e      domain.LogEntry
			cardID string
			rating int
		)
		if err := rows.Scan(&cardID, &e.Timestamp, &rating, &e.ElapsedDays); err != nil {
			return nil, store.NewStoreError("review_log", "read_all", "scan entry", err)
		}
		e.CardID = domain.CardID(cardID)
		e.Rating = domain.Rating(rating)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "read_all", "iterate entries", err)
	}
	return entries, nil
}

// Reset implements store.ReviewLogStore. The count and delete run in one
// transaction so the returned count is exact.
func (s *ReviewLogStore) Reset(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, store.NewStoreError("review_log", "reset", "begin transaction", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM review_log`).Scan(&count); err != nil {
		_ = tx.Rollback()
		return 0, store.NewStoreError("review_log", "reset", "count entries", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_log`); err != nil {
		_ = tx.Rollback()
		return 0, store.NewStoreError("review_log", "reset", "delete entries", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, store.NewStoreError("review_log", "reset", "commit transaction", err)
	}
	return count, nil
}
