package review_session

import "github.com/recallbox/recallbox/internal/domain"

// queueCard is one card's entry in the session queue arena.
type queueCard struct {
	id    domain.CardID
	key   string
	sides int
}

// reviewQueue is the session's due-card queue: an arena of card entries
// keyed by id plus a separate order slice, giving O(1) lookups and a cheap
// move-to-back without touching the arena.
type reviewQueue struct {
	cards map[domain.CardID]*queueCard
	order []domain.CardID
}

// newReviewQueue builds a queue from records already filtered and ordered
// by the queue builder.
func newReviewQueue(records []domain.CardRecord) *reviewQueue {
	q := &reviewQueue{
		cards: make(map[domain.CardID]*queueCard, len(records)),
		order: make([]domain.CardID, 0, len(records)),
	}
	for _, r := range records {
		q.cards[r.ID] = &queueCard{id: r.ID, key: r.Key, sides: r.Sides}
		q.order = append(q.order, r.ID)
	}
	return q
}

func (q *reviewQueue) len() int {
	return len(q.order)
}

// head returns the current card, or nil if the queue is empty.
func (q *reviewQueue) head() *queueCard {
	if len(q.order) == 0 {
		return nil
	}
	return q.cards[q.order[0]]
}

// moveBack removes the head from its position and appends it to the back.
func (q *reviewQueue) moveBack() {
	if len(q.order) < 2 {
		return
	}
	id := q.order[0]
	q.order = append(q.order[1:], id)
}

// remove drops the head permanently.
func (q *reviewQueue) remove() {
	if len(q.order) == 0 {
		return
	}
	delete(q.cards, q.order[0])
	q.order = q.order[1:]
}
