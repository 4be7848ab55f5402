package store

import (
	"context"

	"github.com/recallbox/recallbox/internal/domain"
)

// CardStateStore persists per-card memory state.
type CardStateStore interface {
	// Get retrieves the memory state for a card. It returns (nil, nil) when
	// the card exists but has never been scheduled, and ErrCardNotFound when
	// the card record itself is gone.
	Get(ctx context.Context, id domain.CardID) (*domain.MemoryState, error)

	// Set persists the memory state for a card, replacing any prior state.
	Set(ctx context.Context, id domain.CardID, state *domain.MemoryState) error
}

// ReviewLogStore is the append-only per-card review event log.
//
// Append must be safe against a concurrent writer; a write is all-or-nothing
// and readers never observe a partial entry. Entries are immutable once
// written and are only removed by Reset.
type ReviewLogStore interface {
	// Append writes one complete log entry.
	Append(ctx context.Context, entry domain.LogEntry) error

	// ReadAll returns every entry in write order. It does not mutate the store.
	ReadAll(ctx context.Context) ([]domain.LogEntry, error)

	// Reset truncates the log to empty and returns the number of entries
	// it held.
	Reset(ctx context.Context) (int, error)
}

// CardSource enumerates the cards under a deck scope for queue building.
type CardSource interface {
	// ListCards returns every card whose storage key is under the given
	// scope prefix, with side counts and current memory state (nil state
	// for never-scheduled cards). Order is unspecified.
	ListCards(ctx context.Context, scope string) ([]domain.CardRecord, error)
}
