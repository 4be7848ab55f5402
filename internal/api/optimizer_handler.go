package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/recallbox/recallbox/internal/api/shared"
	"github.com/recallbox/recallbox/internal/service/optimizer"
	"github.com/recallbox/recallbox/internal/store"
)

// OptimizerHandler serves the weight optimization endpoint.
type OptimizerHandler struct {
	optimizer *optimizer.Optimizer
	logs      store.ReviewLogStore
	logger    *slog.Logger
}

// NewOptimizerHandler creates an optimizer handler.
func NewOptimizerHandler(
	opt *optimizer.Optimizer,
	logs store.ReviewLogStore,
	log *slog.Logger,
) *OptimizerHandler {
	if opt == nil {
		panic("optimizer cannot be nil for OptimizerHandler")
	}
	if logs == nil {
		panic("logs cannot be nil for OptimizerHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &OptimizerHandler{
		optimizer: opt,
		logs:      logs,
		logger:    log.With(slog.String("component", "optimizer_handler")),
	}
}

// RunRequest is the body of POST /optimizer/run.
type RunRequest struct {
	EnableShortTerm bool `json:"enable_short_term"`
}

// Run handles POST /optimizer/run. The fit runs synchronously within the
// request; it is CPU-bound and honors request cancellation.
func (h *OptimizerHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	entries, err := h.logs.ReadAll(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"failed to read review log", err)
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), entries, req.EnableShortTerm, nil)
	if err != nil {
		var insufficient *optimizer.InsufficientDataError
		if errors.As(err, &insufficient) {
			shared.RespondWithError(w, r, http.StatusUnprocessableEntity, insufficient.Error())
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away mid-fit; nothing useful to write.
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"optimization failed", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
