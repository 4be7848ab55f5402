package notefile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/store"
)

func writeCard(t *testing.T, root, key, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGetUnscheduledCard(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCard(t, root, "math/sum.md", "What is 2+2?\n===\n4\n")

	state, err := New(root).Get(context.Background(), "math/sum.md")
	require.NoError(t, err)
	assert.Nil(t, state, "a card without metadata exists but is unscheduled")
}

func TestGetMissingCard(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir()).Get(context.Background(), "gone.md")
	require.ErrorIs(t, err, store.ErrCardNotFound)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	body := "Front side\n===\nBack side\n"
	writeCard(t, root, "deck/card.md", body)

	s := New(root)
	ctx := context.Background()

	state := &domain.MemoryState{
		Due:           time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Stability:     4.93,
		Difficulty:    5.21,
		ElapsedDays:   2,
		ScheduledDays: 5,
		Reps:          3,
		Lapses:        1,
		Phase:         domain.PhaseReview,
	}
	require.NoError(t, s.Set(ctx, "deck/card.md", state))

	got, err := s.Get(ctx, "deck/card.md")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, state.Due.Equal(got.Due))
	assert.Equal(t, state.Stability, got.Stability)
	assert.Equal(t, state.Difficulty, got.Difficulty)
	assert.Equal(t, state.Reps, got.Reps)
	assert.Equal(t, state.Lapses, got.Lapses)
	assert.Equal(t, state.Phase, got.Phase)

	// The card body survives the metadata rewrite.
	data, err := os.ReadFile(filepath.Join(root, "deck", "card.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), body))
}

func TestSetReplacesExistingMetadata(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCard(t, root, "card.md", "Question\n===\nAnswer\n")

	s := New(root)
	ctx := context.Background()

	first := &domain.MemoryState{
		Due:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Phase: domain.PhaseLearning,
		Reps:  1,
	}
	require.NoError(t, s.Set(ctx, "card.md", first))

	second := first.Clone()
	second.Reps = 2
	second.Phase = domain.PhaseReview
	require.NoError(t, s.Set(ctx, "card.md", second))

	data, err := os.ReadFile(filepath.Join(root, "card.md"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), metaOpen),
		"set must replace the block, not stack a second one")

	got, err := s.Get(ctx, "card.md")
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.Reps)
}

func TestSetValidation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCard(t, root, "card.md", "x\n")
	s := New(root)
	ctx := context.Background()

	require.ErrorIs(t, s.Set(ctx, "card.md", nil), store.ErrInvalidEntity)

	invalid := &domain.MemoryState{Phase: domain.PhaseReview} // zero due
	require.ErrorIs(t, s.Set(ctx, "card.md", invalid), store.ErrInvalidEntity)

	valid := &domain.MemoryState{Due: time.Now(), Phase: domain.PhaseReview, Reps: 1}
	require.ErrorIs(t, s.Set(ctx, "missing.md", valid), store.ErrCardNotFound)
}

func TestListCardsScopeAndSides(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCard(t, root, "math/algebra/a.md", "q\n===\nans\n===\nmnemonic\n")
	writeCard(t, root, "math/geometry/b.md", "q\n===\na\n")
	writeCard(t, root, "spanish/c.md", "single side, no separator\n")
	writeCard(t, root, "notes.txt", "not a card\n")

	s := New(root)
	ctx := context.Background()

	all, err := s.ListCards(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3, "only .md files are cards")

	math, err := s.ListCards(ctx, "math")
	require.NoError(t, err)
	require.Len(t, math, 2)

	algebra, err := s.ListCards(ctx, "math/algebra")
	require.NoError(t, err)
	require.Len(t, algebra, 1)
	assert.Equal(t, domain.CardID("math/algebra/a.md"), algebra[0].ID)
	assert.Equal(t, 3, algebra[0].Sides)
	assert.Nil(t, algebra[0].State)

	// "math" must not match "mathematics".
	writeCard(t, root, "mathematics/d.md", "q\n")
	math, err = s.ListCards(ctx, "math")
	require.NoError(t, err)
	assert.Len(t, math, 2)
}

func TestListCardsIncludesState(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeCard(t, root, "deck/a.md", "q\n===\na\n")
	s := New(root)
	ctx := context.Background()

	state := &domain.MemoryState{
		Due:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Phase: domain.PhaseReview,
		Reps:  1,
	}
	require.NoError(t, s.Set(ctx, "deck/a.md", state))

	records, err := s.ListCards(ctx, "deck")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].State)
	assert.Equal(t, domain.PhaseReview, records[0].State.Phase)
	assert.Equal(t, 2, records[0].Sides)
}

func TestListCardsMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "does-not-exist"))
	records, err := s.ListCards(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSplitMetadataMalformedBlock(t *testing.T) {
	t.Parallel()

	// An unterminated block is treated as body, not metadata.
	meta, body := splitMetadata("<!--srs\ndue: x\nno close\n")
	assert.Empty(t, meta)
	assert.NotEmpty(t, body)
}

func TestCountSides(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, countSides("no separators"))
	assert.Equal(t, 2, countSides("a\n===\nb"))
	assert.Equal(t, 3, countSides("a\n === \nb\n===\nc"))
	assert.Equal(t, 1, countSides("inline === does not split"))
}
