package review_session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/platform/logger"
	"github.com/recallbox/recallbox/internal/store"
)

// QueueBuilder produces the ordered set of cards due within a deck scope
// at a frozen point in time.
type QueueBuilder struct {
	source store.CardSource
	logger *slog.Logger
}

// NewQueueBuilder creates a queue builder over the given card source.
func NewQueueBuilder(source store.CardSource, log *slog.Logger) *QueueBuilder {
	if source == nil {
		panic("source cannot be nil for QueueBuilder")
	}
	if log == nil {
		log = slog.Default()
	}
	return &QueueBuilder{
		source: source,
		logger: log.With(slog.String("component", "queue_builder")),
	}
}

// Build returns the due cards under deckScope at now, ordered
// lexicographically by storage key. A card is due if it has never been
// scheduled or its due instant has passed. The order is fixed for the life
// of the returned slice; the session never re-sorts as ratings are applied.
func (b *QueueBuilder) Build(
	ctx context.Context,
	deckScope string,
	now time.Time,
) ([]domain.CardRecord, error) {
	log := logger.FromContextOrDefault(ctx, b.logger)

	records, err := b.source.ListCards(ctx, deckScope)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	due := records[:0]
	for _, r := range records {
		if r.State == nil || r.State.IsDue(now) {
			due = append(due, r)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].Key < due[j].Key })

	log.Debug("built due queue",
		slog.String("deck_scope", deckScope),
		slog.Int("due_cards", len(due)),
		slog.Time("now", now))
	return due, nil
}
