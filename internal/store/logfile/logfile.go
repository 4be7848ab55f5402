// Package logfile implements the append-only review log as a
// newline-delimited JSON file, one entry per line.
package logfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/store"
)

// Store is a file-backed ReviewLogStore. Appends are serialized by a mutex
// within the process and issued as a single O_APPEND write so a concurrent
// writer from another process cannot interleave bytes mid-line.
type Store struct {
	path string
	mu   sync.Mutex
}

// Verify interface compliance at compile time.
var _ store.ReviewLogStore = (*Store)(nil)

// New creates a log store at the given path. The file is created lazily on
// first append.
func New(path string) *Store {
	return &Store{path: path}
}

// Append implements store.ReviewLogStore. The entry is marshaled and
// written with its trailing newline in one write call; on failure the
// prior content is untouched.
func (s *Store) Append(ctx context.Context, entry domain.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return store.NewStoreError("review_log", "append", "marshal entry", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return store.NewStoreError("review_log", "append", "open log file", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(line); err != nil {
		return store.NewStoreError("review_log", "append", "write entry", err)
	}
	return nil
}

// ReadAll implements store.ReviewLogStore. Entries come back in write
// order. A torn trailing line (no terminating newline, left by a crashed
// writer) is not observable: everything after the last newline is dropped.
func (s *Store) ReadAll(ctx context.Context) ([]domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, store.NewStoreError("review_log", "read_all", "read log file", err)
	}

	return parseEntries(data)
}

// Reset implements store.ReviewLogStore: it truncates the log to empty and
// returns the number of entries it held.
func (s *Store) Reset(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, store.NewStoreError("review_log", "reset", "read log file", err)
	}

	entries, err := parseEntries(data)
	if err != nil {
		return 0, err
	}

	if err := os.Truncate(s.path, 0); err != nil {
		return 0, store.NewStoreError("review_log", "reset", "truncate log file", err)
	}
	return len(entries), nil
}

// parseEntries decodes complete lines, ignoring blank lines and a torn tail.
func parseEntries(data []byte) ([]domain.LogEntry, error) {
	// Drop a torn tail: bytes after the last newline belong to an
	// unfinished write.
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	} else {
		return nil, nil
	}

	var entries []domain.LogEntry
	for n, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e domain.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, store.NewStoreError("review_log", "read_all",
				fmt.Sprintf("decode line %d", n+1), err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
