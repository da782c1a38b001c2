package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/algiz/internal/attach"
	"github.com/starford/algiz/internal/notestore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notestore.Service, reg *attach.Registry, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(reg)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(ActorMiddleware)

	// Notes. The /notes/search route must stay static so chi matches it
	// before /notes/{id}.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/search", h.Search)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Post("/notes/{id}/lock", h.LockNote)

	// Version ledger (read-only).
	r.Get("/notes/{id}/versions", h.ListVersions)
	r.Get("/notes/{id}/versions/{number}", h.GetVersion)
	r.Get("/notes/{id}/versions/{number}/diff", h.GetVersionDiff)

	// Attachments.
	r.Post("/notes/{id}/attachments", ah.Upload)
	r.Get("/notes/{id}/attachments/{attachmentID}/download", ah.Download)
	r.Delete("/notes/{id}/attachments/{attachmentID}", ah.Delete)
	r.Post("/notes/{id}/attachments/{attachmentID}/extraction", ah.Extraction)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
