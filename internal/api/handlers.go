package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/notestore"
	"github.com/starford/algiz/internal/store"
)

const maxBodyBytes = 10 << 20 // 10 MB

// Handler holds the note route handlers.
type Handler struct {
	svc *notestore.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notestore.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a clinical note with ledger version 1
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	note, err := h.svc.Create(r.Context(), notestore.CreateParams{
		PatientID:      req.PatientID,
		EncounterID:    req.EncounterID,
		Type:           models.NoteType(req.NoteType),
		Title:          req.Title,
		ContentText:    req.ContentText,
		ContentHTML:    req.ContentHTML,
		StructuredData: req.StructuredData,
		Author:         actorFrom(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note with its full version ledger and attachments
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Amend a note by appending a new immutable version
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Amended content with edit reason"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if _, err := h.svc.Update(r.Context(), id, notestore.UpdateParams{
		ContentText:    req.ContentText,
		ContentHTML:    req.ContentHTML,
		StructuredData: req.StructuredData,
		EditReason:     req.EditReason,
		Editor:         actorFrom(r.Context()),
	}); err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List note heads, optionally filtered by patient
//	@Tags			notes
//	@Produce		json
//	@Param			patient_id	query		int	false	"Patient filter"
//	@Param			limit		query		int	false	"Page size"
//	@Param			offset		query		int	false	"Page offset"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patientID, _ := strconv.ParseInt(q.Get("patient_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notes, total, err := h.svc.List(r.Context(), patientID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// LockNote handles POST /api/notes/{id}/lock.
//
//	@Summary		Seal a note against further versions and attachments
//	@Tags			notes
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			reason	query		string	true	"Lock reason"
//	@Success		200		{object}	Note
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/lock [post]
func (h *Handler) LockNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Lock(r.Context(), chi.URLParam(r, "id"),
		r.URL.Query().Get("reason"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ListVersions handles GET /api/notes/{id}/versions.
//
//	@Summary		List a note's full version ledger
//	@Tags			versions
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	VersionListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.Versions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if versions == nil {
		versions = []models.NoteVersion{}
	}
	writeJSON(w, http.StatusOK, VersionListResponse{Versions: versions})
}

// GetVersion handles GET /api/notes/{id}/versions/{number}.
//
//	@Summary		Get one immutable ledger entry
//	@Tags			versions
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			number	path		int		true	"Version number"
//	@Success		200		{object}	NoteVersion
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/versions/{number} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("version number must be a positive integer"))
		return
	}
	v, err := h.svc.Version(r.Context(), chi.URLParam(r, "id"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetVersionDiff handles GET /api/notes/{id}/versions/{number}/diff.
//
//	@Summary		Get the structured diff a version was committed with
//	@Tags			versions
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			number	path		int		true	"Version number"
//	@Success		200		{array}		diff.Segment
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/versions/{number}/diff [get]
func (h *Handler) GetVersionDiff(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("version number must be a positive integer"))
		return
	}
	v, err := h.svc.Version(r.Context(), chi.URLParam(r, "id"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	if v.DiffFromPrev == nil {
		// Version 1 has no predecessor.
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.DiffFromPrev)
}

// Search handles GET /api/notes/search.
//
//	@Summary		Full-text search over current note content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
