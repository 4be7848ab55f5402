// Package api exposes the review session and optimizer over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/recallbox/recallbox/internal/api/shared"
	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/service/review_session"
	"github.com/recallbox/recallbox/internal/store"
)

// SessionHandler serves the review session endpoints.
type SessionHandler struct {
	manager *review_session.Manager
	logger  *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(manager *review_session.Manager, log *slog.Logger) *SessionHandler {
	if manager == nil {
		panic("manager cannot be nil for SessionHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionHandler{
		manager: manager,
		logger:  log.With(slog.String("component", "session_handler")),
	}
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	// DeckScope is a path prefix selecting the cards in play; empty means
	// the whole collection.
	DeckScope string `json:"deck_scope"`
}

// RateRequest is the body of POST /sessions/current/rating.
type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=4"`
}

// RateResponse reports the outcome of a rating.
type RateResponse struct {
	CardID    domain.CardID `json:"card_id"`
	Due       time.Time     `json:"due"`
	Stability float64       `json:"stability"`
	Requeued  bool          `json:"requeued"`
	Completed bool          `json:"completed"`

	// AuditWarning is set when the scheduling change persisted but the
	// review log entry was not recorded.
	AuditWarning string `json:"audit_warning,omitempty"`

	Session *review_session.Snapshot `json:"session"`
}

// Start handles POST /sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.manager.Start(r.Context(), req.DeckScope)
	if err != nil {
		switch {
		case errors.Is(err, review_session.ErrSessionActive):
			shared.RespondWithError(w, r, http.StatusConflict, "a session is already active")
		case errors.Is(err, review_session.ErrNoDueCards):
			shared.RespondWithError(w, r, http.StatusNotFound, "no cards are due")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"failed to start session", err)
		}
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, snap)
}

// Get handles GET /sessions/current.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.manager.GetSession()
	if snap == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "no active session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// AdvanceSide handles POST /sessions/current/advance.
func (h *SessionHandler) AdvanceSide(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.AdvanceSide()
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// Rate handles POST /sessions/current/rating.
func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.manager.Rate(r.Context(), domain.Rating(req.Rating))
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			// The card record vanished; the session skipped it and moved on.
			shared.RespondWithError(w, r, http.StatusGone, "card no longer exists; skipped")
			return
		}
		h.respondSessionError(w, r, err)
		return
	}

	resp := RateResponse{
		CardID:    outcome.CardID,
		Due:       outcome.NewState.Due,
		Stability: outcome.NewState.Stability,
		Requeued:  outcome.Requeued,
		Completed: outcome.Completed,
		Session:   h.manager.GetSession(),
	}
	if outcome.AuditErr != nil {
		resp.AuditWarning = "scheduling updated but review log entry not recorded"
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// End handles DELETE /sessions/current.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	h.manager.End()
	w.WriteHeader(http.StatusNoContent)
}

// respondSessionError maps session state machine errors to HTTP statuses.
func (h *SessionHandler) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, review_session.ErrNoActiveSession):
		shared.RespondWithError(w, r, http.StatusNotFound, "no active session")
	case errors.Is(err, review_session.ErrSessionCompleted):
		shared.RespondWithError(w, r, http.StatusConflict, "session already completed")
	case errors.Is(err, review_session.ErrCardNotRevealed):
		shared.RespondWithError(w, r, http.StatusUnprocessableEntity,
			"card must be fully revealed before rating")
	case errors.Is(err, review_session.ErrInvalidRating):
		shared.RespondWithError(w, r, http.StatusBadRequest, "rating must be between 1 and 4")
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"failed to process request", err)
	}
}
