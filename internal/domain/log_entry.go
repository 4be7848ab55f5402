package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogEntry records one rating applied to one card. Entries are append-only:
// once written they are never mutated or deleted except by an explicit
// full reset of the log.
type LogEntry struct {
	CardID      CardID
	Timestamp   time.Time
	Rating      Rating
	ElapsedDays uint
}

// logEntryJSON is the newline-delimited JSON wire form of a LogEntry:
//
//	{"cardId": "...", "entry": {"timestamp": "...", "rating": 3, "elapsed_days": 2}}
type logEntryJSON struct {
	CardID string       `json:"cardId"`
	Entry  logEntryBody `json:"entry"`
}

type logEntryBody struct {
	Timestamp   time.Time `json:"timestamp"`
	Rating      int       `json:"rating"`
	ElapsedDays uint      `json:"elapsed_days"`
}

// MarshalJSON implements json.Marshaler using the nested wire envelope.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	if !e.Rating.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(e.Rating))
	}
	return json.Marshal(logEntryJSON{
		CardID: string(e.CardID),
		Entry: logEntryBody{
			Timestamp:   e.Timestamp,
			Rating:      int(e.Rating),
			ElapsedDays: e.ElapsedDays,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for the wire envelope.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var j logEntryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	r := Rating(j.Entry.Rating)
	if !r.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidRating, j.Entry.Rating)
	}
	e.CardID = CardID(j.CardID)
	e.Timestamp = j.Entry.Timestamp
	e.Rating = r
	e.ElapsedDays = j.Entry.ElapsedDays
	return nil
}
