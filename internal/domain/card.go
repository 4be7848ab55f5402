package domain

// CardID is the stable identifier of a card. It is the card's storage key
// (a slash-separated path under the content root) and is independent of
// where the backing record physically lives.
type CardID string

// String returns the storage key.
func (id CardID) String() string {
	return string(id)
}

// CardRecord is a card as seen by the queue builder: its identity, its
// storage key, how many content sides its body splits into, and its
// current memory state (nil if the card has never been scheduled).
type CardRecord struct {
	ID    CardID
	Key   string
	Sides int
	State *MemoryState
}
