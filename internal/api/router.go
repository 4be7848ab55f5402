package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routing tree.
func NewRouter(sessions *SessionHandler, opt *OptimizerHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", sessions.Start)
		r.Route("/sessions/current", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Post("/advance", sessions.AdvanceSide)
			r.Post("/rating", sessions.Rate)
			r.Delete("/", sessions.End)
		})
		r.Post("/optimizer/run", opt.Run)
	})

	return r
}
