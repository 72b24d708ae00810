package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orgstamp/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, defaults Defaults, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, defaults)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/resolve", h.Resolve)

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)
	r.Post("/stamp/*", h.InsertStamp)

	r.Get("/agenda", h.Agenda)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
