// Package notefile stores card state as embedded key/value metadata inside
// the card's own text file. A card is a Markdown file under the content
// root; its storage key is the slash-separated path relative to that root.
//
// Scheduling metadata lives in a comment block at the top of the file:
//
//	<!--srs
//	due: 2026-03-01T09:00:00Z
//	stability: 4.93
//	difficulty: 5.21
//	elapsed-days: 2
//	scheduled-days: 5
//	reps: 3
//	lapses: 1
//	phase: Review
//	step: 0
//	-->
//
// The card body follows the block. Sides are separated by lines consisting
// solely of "===".
package notefile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/store"
)

// Store is a file-backed CardStateStore and CardSource over a directory
// tree of card files.
type Store struct {
	root string
	mu   sync.Mutex // serializes Set rewrites
}

// Verify interface compliance at compile time.
var (
	_ store.CardStateStore = (*Store)(nil)
	_ store.CardSource     = (*Store)(nil)
)

// New creates a notefile store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Get implements store.CardStateStore. It returns (nil, nil) for a card
// file that carries no scheduling metadata yet.
func (s *Store) Get(ctx context.Context, id domain.CardID) (*domain.MemoryState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.cardPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrCardNotFound, id)
		}
		return nil, store.NewStoreError("card_state", "get", "read card file", err)
	}

	meta, _ := splitMetadata(string(data))
	if meta == "" {
		return nil, nil
	}
	state, err := parseState(meta)
	if err != nil {
		return nil, store.NewStoreError("card_state", "get", "parse metadata", err)
	}
	return state, nil
}

// Set implements store.CardStateStore. The card file is rewritten with the
// new metadata block via a temp file and rename, so a crash mid-write
// leaves either the old or the new content, never a mix.
func (s *Store) Set(ctx context.Context, id domain.CardID, state *domain.MemoryState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: nil memory state", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.cardPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, id)
		}
		return store.NewStoreError("card_state", "set", "read card file", err)
	}

	_, body := splitMetadata(string(data))
	content := formatState(state) + body

	tmp, err := os.CreateTemp(filepath.Dir(path), ".srs-*")
	if err != nil {
		return store.NewStoreError("card_state", "set", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return store.NewStoreError("card_state", "set", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return store.NewStoreError("card_state", "set", "close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return store.NewStoreError("card_state", "set", "replace card file", err)
	}
	return nil
}

// ListCards implements store.CardSource. It walks the content root and
// returns every card whose storage key is under the scope prefix.
func (s *Store) ListCards(ctx context.Context, scope string) ([]domain.CardRecord, error) {
	var records []domain.CardRecord

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !inScope(key, scope) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		meta, body := splitMetadata(string(data))

		var state *domain.MemoryState
		if meta != "" {
			state, err = parseState(meta)
			if err != nil {
				return store.NewStoreError("card_state", "list",
					fmt.Sprintf("parse metadata for %s", key), err)
			}
		}

		records = append(records, domain.CardRecord{
			ID:    domain.CardID(key),
			Key:   key,
			Sides: countSides(body),
			State: state,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (s *Store) cardPath(id domain.CardID) string {
	return filepath.Join(s.root, filepath.FromSlash(string(id)))
}

// inScope reports whether key falls under the deck scope prefix. The empty
// scope matches everything.
func inScope(key, scope string) bool {
	if scope == "" {
		return true
	}
	return key == scope || strings.HasPrefix(key, strings.TrimSuffix(scope, "/")+"/")
}

// countSides returns how many sides the body splits into. A body with no
// separators is a single side.
func countSides(body string) int {
	sides := 1
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == sideSeparator {
			sides++
		}
	}
	return sides
}
