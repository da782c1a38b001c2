package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/algiz/internal/attach"
	"github.com/starford/algiz/internal/models"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves the attachment routes.
type AttachmentHandler struct {
	reg *attach.Registry
}

// NewAttachmentHandler creates a handler over the attachment registry.
func NewAttachmentHandler(reg *attach.Registry) *AttachmentHandler {
	return &AttachmentHandler{reg: reg}
}

// Upload handles POST /api/notes/{id}/attachments (multipart form, field "file").
//
//	@Summary		Attach a binary artifact to a note
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			file	formData	file	true	"Attachment binary"
//	@Success		201		{object}	NoteAttachment
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	a, err := h.reg.Upload(r.Context(), chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), file, actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Download handles GET /api/notes/{id}/attachments/{attachmentID}/download.
//
//	@Summary		Download an attachment binary
//	@Tags			attachments
//	@Param			id				path	string	true	"Note id"
//	@Param			attachmentID	path	string	true	"Attachment id"
//	@Success		200				"Binary content"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/attachments/{attachmentID}/download [get]
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	a, rc, err := h.reg.Open(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("attachment download failed",
			slog.String("attachment_id", a.ID),
			slog.String("error", err.Error()))
	}
}

// Delete handles DELETE /api/notes/{id}/attachments/{attachmentID}.
//
//	@Summary		Remove an attachment registry entry and its binary
//	@Tags			attachments
//	@Param			id				path	string	true	"Note id"
//	@Param			attachmentID	path	string	true	"Attachment id"
//	@Success		204				"Attachment deleted"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/attachments/{attachmentID} [delete]
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.reg.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extraction handles POST /api/notes/{id}/attachments/{attachmentID}/extraction,
// the callback posted by the external extraction pipeline.
//
//	@Summary		Record an extraction status transition
//	@Tags			attachments
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string				true	"Note id"
//	@Param			attachmentID	path		string				true	"Attachment id"
//	@Param			body			body		ExtractionRequest	true	"New status"
//	@Success		200				{object}	NoteAttachment
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Failure		409				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/attachments/{attachmentID}/extraction [post]
func (h *AttachmentHandler) Extraction(w http.ResponseWriter, r *http.Request) {
	var req ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if _, err := h.reg.Find(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID")); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.reg.MarkExtraction(r.Context(), chi.URLParam(r, "attachmentID"),
		models.ExtractionStatus(req.Status), req.Error)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
