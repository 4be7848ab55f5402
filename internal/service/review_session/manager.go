// Package review_session drives a learner's pass through a deck's due
// cards: it composes the queue builder, the scheduling model, the card
// state store, and the review log into a single session state machine.
package review_session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/domain/srs"
	"github.com/recallbox/recallbox/internal/extensions"
	"github.com/recallbox/recallbox/internal/platform/logger"
	"github.com/recallbox/recallbox/internal/store"
)

// onRateHook is the extension invoked after each successful rating, when
// registered.
const onRateHook = "on_rate"

// Snapshot is an immutable read of the session's progress.
type Snapshot struct {
	SessionID        uuid.UUID     `json:"session_id"`
	DeckScope        string        `json:"deck_scope"`
	CurrentCardID    domain.CardID `json:"current_card_id"`
	CurrentSide      int           `json:"current_side"`
	SideCount        int           `json:"side_count"`
	InitialTotal     int           `json:"initial_total"`
	ReviewedCount    int           `json:"reviewed_count"`
	ReviewsPerformed int           `json:"reviews_performed"`
	Completed        bool          `json:"completed"`
}

// RateOutcome reports what a successful Rate call did.
type RateOutcome struct {
	CardID   domain.CardID
	NewState *domain.MemoryState

	// Requeued is true when the card stayed due within the session and was
	// moved to the back of the queue instead of being completed.
	Requeued bool

	// Completed is true when this rating emptied the queue.
	Completed bool

	// AuditErr is non-nil when the scheduling update persisted but the
	// review log append failed. The scheduling change stands; only the
	// audit entry is missing.
	AuditErr error
}

// session is the mutable state of one active or completed session. It is
// only ever touched under the manager's mutex.
type session struct {
	id               uuid.UUID
	deckScope        string
	queue            *reviewQueue
	currentSide      int
	initialTotal     int
	reviewedCount    int
	reviewsPerformed int
	now              time.Time // frozen at Start
	completed        bool
}

// Manager is the review session state machine: Inactive → Active →
// Completed, with End returning to Inactive from any state.
//
// Calls are serialized internally by a mutex; exactly one session exists
// per manager at a time.
type Manager struct {
	builder *QueueBuilder
	states  store.CardStateStore
	logs    store.ReviewLogStore
	model   srs.Service
	hooks   *extensions.Registry
	logger  *slog.Logger
	clock   func() time.Time

	mu   sync.Mutex
	sess *session
}

// NewManager creates a session manager. The hooks registry is optional.
func NewManager(
	builder *QueueBuilder,
	states store.CardStateStore,
	logs store.ReviewLogStore,
	model srs.Service,
	hooks *extensions.Registry,
	log *slog.Logger,
) *Manager {
	if builder == nil {
		panic("builder cannot be nil for Manager")
	}
	if states == nil {
		panic("states cannot be nil for Manager")
	}
	if logs == nil {
		panic("logs cannot be nil for Manager")
	}
	if model == nil {
		panic("model cannot be nil for Manager")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		builder: builder,
		states:  states,
		logs:    logs,
		model:   model,
		hooks:   hooks,
		logger:  log.With(slog.String("component", "review_session")),
		clock:   time.Now,
	}
}

// Start begins a session over the deck scope. The session's "now" is
// frozen here and used for every due comparison and log timestamp until
// the session ends. Fails with ErrNoDueCards (no state change) when
// nothing is due, and ErrSessionActive when a session is already running.
func (m *Manager) Start(ctx context.Context, deckScope string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		return nil, ErrSessionActive
	}

	now := m.clock().UTC()
	records, err := m.builder.Build(ctx, deckScope, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build due queue: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoDueCards
	}

	m.sess = &session{
		id:           uuid.New(),
		deckScope:    deckScope,
		queue:        newReviewQueue(records),
		initialTotal: len(records),
		now:          now,
	}

	log := logger.FromContextOrDefault(ctx, m.logger)
	log.Info("review session started",
		slog.String("session_id", m.sess.id.String()),
		slog.String("deck_scope", deckScope),
		slog.Int("due_cards", len(records)))
	return m.snapshotLocked(), nil
}

// AdvanceSide reveals the current card's next side. Advancing past the
// last side is a no-op; the caller must Rate instead.
func (m *Manager) AdvanceSide() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}

	cur := m.sess.queue.head()
	if m.sess.currentSide+1 < cur.sides {
		m.sess.currentSide++
	}
	return m.snapshotLocked(), nil
}

// Rate applies a rating to the current card. The card must be fully
// revealed. Persistence of the new memory state is the atomic failure
// boundary: if it fails, nothing changed. A review log append failure
// after successful persistence is reported via RateOutcome.AuditErr and is
// deliberately not rolled back.
func (m *Manager) Rate(ctx context.Context, rating domain.Rating) (*RateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return nil, err
	}
	if !rating.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	sess := m.sess
	cur := sess.queue.head()
	if sess.currentSide != cur.sides-1 {
		return nil, fmt.Errorf("%w: side %d of %d shown",
			ErrCardNotRevealed, sess.currentSide+1, cur.sides)
	}

	log := logger.FromContextOrDefault(ctx, m.logger).With(
		slog.String("session_id", sess.id.String()),
		slog.String("card_id", cur.id.String()))

	// 1. Read the current memory state; nil means never scheduled.
	state, err := m.states.Get(ctx, cur.id)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			// The card record vanished mid-session. Skip it and keep the
			// session going; it is not counted as completed.
			log.Warn("card missing from store, skipping", slog.String("error", err.Error()))
			sess.queue.remove()
			sess.currentSide = 0
			if sess.queue.len() == 0 {
				sess.completed = true
			}
			return nil, err
		}
		return nil, &PersistenceError{Op: "get_state", Err: err}
	}
	if state == nil {
		state = m.model.InitialState(sess.now)
	}

	// 2. Compute the new state.
	newState, err := m.model.ApplyRating(state, rating, sess.now)
	if err != nil {
		return nil, fmt.Errorf("failed to apply rating: %w", err)
	}

	// 3. Persist. On failure nothing below runs: counters and queue are
	// exactly as before the call.
	if err := m.states.Set(ctx, cur.id, newState); err != nil {
		return nil, &PersistenceError{Op: "set_state", Err: err}
	}

	// 4. Append the audit entry. A failure here is surfaced as a partial
	// success: the scheduling change above is intentionally retained.
	var auditErr error
	entry := domain.LogEntry{
		CardID:      cur.id,
		Timestamp:   sess.now,
		Rating:      rating,
		ElapsedDays: newState.ElapsedDays,
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		auditErr = &PersistenceError{Op: "append_log", Err: err}
		log.Warn("state updated but audit entry not recorded",
			slog.String("error", err.Error()))
	}

	// 5. The review happened regardless of the retention decision below.
	sess.reviewsPerformed++

	// 6. Retention decision: a card still due within the session goes to
	// the back of the queue and is not counted as completed.
	outcome := &RateOutcome{
		CardID:   cur.id,
		NewState: newState,
		AuditErr: auditErr,
	}
	if !newState.Due.After(sess.now) {
		sess.queue.moveBack()
		outcome.Requeued = true
	} else {
		sess.queue.remove()
		sess.reviewedCount++
	}

	// 7. New queue head starts at its first side.
	sess.currentSide = 0

	// 8. Empty queue completes the session.
	if sess.queue.len() == 0 {
		sess.completed = true
		outcome.Completed = true
		log.Info("review session completed",
			slog.Int("reviewed", sess.reviewedCount),
			slog.Int("reviews_performed", sess.reviewsPerformed))
	}

	m.fireOnRate(ctx, log, cur.id, rating)

	log.Debug("rating applied",
		slog.String("rating", rating.String()),
		slog.Bool("requeued", outcome.Requeued),
		slog.Int("reviewed", sess.reviewedCount),
		slog.Int("reviews_performed", sess.reviewsPerformed))
	return outcome, nil
}

// End discards the session from any state. Valid even when no session is
// running.
func (m *Manager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		m.logger.Info("review session ended",
			slog.String("session_id", m.sess.id.String()),
			slog.Int("reviewed", m.sess.reviewedCount),
			slog.Int("reviews_performed", m.sess.reviewsPerformed))
	}
	m.sess = nil
}

// GetSession returns an immutable snapshot of the session, or nil when
// inactive.
func (m *Manager) GetSession() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsSessionActive reports whether a session is running (active or
// completed but not yet ended).
func (m *Manager) IsSessionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess != nil
}

// requireActiveLocked rejects operations outside an active session.
func (m *Manager) requireActiveLocked() error {
	if m.sess == nil {
		return ErrNoActiveSession
	}
	if m.sess.completed {
		return ErrSessionCompleted
	}
	return nil
}

// snapshotLocked builds a Snapshot; callers hold the mutex.
func (m *Manager) snapshotLocked() *Snapshot {
	if m.sess == nil {
		return nil
	}
	snap := &Snapshot{
		SessionID:        m.sess.id,
		DeckScope:        m.sess.deckScope,
		CurrentSide:      m.sess.currentSide,
		InitialTotal:     m.sess.initialTotal,
		ReviewedCount:    m.sess.reviewedCount,
		ReviewsPerformed: m.sess.reviewsPerformed,
		Completed:        m.sess.completed,
	}
	if cur := m.sess.queue.head(); cur != nil {
		snap.CurrentCardID = cur.id
		snap.SideCount = cur.sides
	}
	return snap
}

// fireOnRate invokes the registered on_rate extension, if any. Hook
// failures are logged and never affect the rating result.
func (m *Manager) fireOnRate(
	ctx context.Context,
	log *slog.Logger,
	cardID domain.CardID,
	rating domain.Rating,
) {
	if m.hooks == nil {
		return
	}
	input := fmt.Sprintf("%s:%s", cardID, rating)
	if _, err := m.hooks.Invoke(ctx, onRateHook, input); err != nil {
		if errors.Is(err, extensions.ErrUnknownExtension) {
			return
		}
		log.Warn("on_rate hook failed", slog.String("error", err.Error()))
	}
}
