package notefile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/recallbox/recallbox/internal/domain"
)

const (
	metaOpen      = "<!--srs"
	metaClose     = "-->"
	sideSeparator = "==="
)

// splitMetadata separates the leading srs comment block from the card body.
// Returns ("", content) when no block is present.
func splitMetadata(content string) (meta, body string) {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, metaOpen+"\n") {
		return "", content
	}
	rest := trimmed[len(metaOpen)+1:]
	end := strings.Index(rest, metaClose)
	if end < 0 {
		return "", content
	}
	meta = rest[:end]
	body = strings.TrimPrefix(rest[end+len(metaClose):], "\n")
	return meta, body
}

// parseState decodes the key/value lines of a metadata block.
func parseState(meta string) (*domain.MemoryState, error) {
	state := &domain.MemoryState{}
	for _, line := range strings.Split(meta, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed metadata line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "due":
			state.Due, err = time.Parse(time.RFC3339Nano, value)
		case "stability":
			state.Stability, err = strconv.ParseFloat(value, 64)
		case "difficulty":
			state.Difficulty, err = strconv.ParseFloat(value, 64)
		case "elapsed-days":
			err = parseUint(value, &state.ElapsedDays)
		case "scheduled-days":
			err = parseUint(value, &state.ScheduledDays)
		case "reps":
			err = parseUint(value, &state.Reps)
		case "lapses":
			err = parseUint(value, &state.Lapses)
		case "phase":
			err = state.Phase.UnmarshalText([]byte(value))
		case "step":
			state.LearningStep, err = strconv.Atoi(value)
		default:
			// Unknown keys are preserved by Set only through re-serialization
			// of known fields; skip them on read.
		}
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", key, err)
		}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

func parseUint(value string, dst *uint) error {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = uint(v)
	return nil
}

// formatState renders the metadata block, trailing newline included.
func formatState(s *domain.MemoryState) string {
	var b strings.Builder
	b.WriteString(metaOpen)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "due: %s\n", s.Due.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "stability: %s\n", strconv.FormatFloat(s.Stability, 'g', -1, 64))
	fmt.Fprintf(&b, "difficulty: %s\n", strconv.FormatFloat(s.Difficulty, 'g', -1, 64))
	fmt.Fprintf(&b, "elapsed-days: %d\n", s.ElapsedDays)
	fmt.Fprintf(&b, "scheduled-days: %d\n", s.ScheduledDays)
	fmt.Fprintf(&b, "reps: %d\n", s.Reps)
	fmt.Fprintf(&b, "lapses: %d\n", s.Lapses)
	fmt.Fprintf(&b, "phase: %s\n", s.Phase)
	fmt.Fprintf(&b, "step: %d\n", s.LearningStep)
	b.WriteString(metaClose)
	b.WriteByte('\n')
	return b.String()
}
