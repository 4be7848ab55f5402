package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEntryMarshalJSON(t *testing.T) {
	t.Parallel()

	entry := LogEntry{
		CardID:      "math/algebra/card-001.md",
		Timestamp:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Rating:      RatingGood,
		ElapsedDays: 2,
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	// The wire envelope nests everything but the card id under "entry".
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "cardId")
	assert.Contains(t, raw, "entry")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw["entry"], &body))
	assert.Equal(t, "2026-03-01T09:30:00Z", body["timestamp"])
	assert.Equal(t, float64(3), body["rating"])
	assert.Equal(t, float64(2), body["elapsed_days"])
}

func TestLogEntryRoundTrip(t *testing.T) {
	t.Parallel()

	original := LogEntry{
		CardID:      "spanish/verbs.md",
		Timestamp:   time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
		Rating:      RatingAgain,
		ElapsedDays: 0,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded LogEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.CardID, decoded.CardID)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, original.Rating, decoded.Rating)
	assert.Equal(t, original.ElapsedDays, decoded.ElapsedDays)
}

func TestLogEntryRejectsInvalidRating(t *testing.T) {
	t.Parallel()

	t.Run("marshal", func(t *testing.T) {
		t.Parallel()
		entry := LogEntry{
			CardID:    "a.md",
			Timestamp: time.Now(),
			Rating:    Rating(7),
		}
		_, err := json.Marshal(entry)
		require.Error(t, err)
	})

	t.Run("unmarshal", func(t *testing.T) {
		t.Parallel()
		line := `{"cardId":"a.md","entry":{"timestamp":"2026-01-01T00:00:00Z","rating":0,"elapsed_days":0}}`
		var entry LogEntry
		err := json.Unmarshal([]byte(line), &entry)
		require.ErrorIs(t, err, ErrInvalidRating)
	})
}
