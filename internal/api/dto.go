package api

import (
	"encoding/json"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/notestore"
	"github.com/starford/algiz/internal/store"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	PatientID      int64           `json:"patient_id" example:"101" validate:"required"`
	EncounterID    string          `json:"encounter_id,omitempty" example:"enc-2041"`
	NoteType       string          `json:"note_type" example:"soap" validate:"required"`
	Title          string          `json:"title" example:"Initial Visit" validate:"required"`
	ContentText    string          `json:"content_text" example:"S: chest pain..." validate:"required"`
	ContentHTML    string          `json:"content_html,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
}

// UpdateNoteRequest is the request body for amending a note. Every amendment
// carries an edit reason for the audit trail.
type UpdateNoteRequest struct {
	ContentText    string          `json:"content_text" example:"S: chest pain resolved" validate:"required"`
	ContentHTML    string          `json:"content_html,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	EditReason     string          `json:"edit_reason" example:"corrected subjective" validate:"required"`
}

// ExtractionRequest is the callback body posted by the external extraction
// pipeline.
type ExtractionRequest struct {
	Status string `json:"status" example:"completed" validate:"required"`
	Error  string `json:"error,omitempty"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = notestore.NoteDetail

// Note is the note head response type.
type Note = models.Note

// NoteVersion is one ledger entry in a response.
type NoteVersion = models.NoteVersion

// NoteAttachment is one attachment in a response.
type NoteAttachment = models.NoteAttachment

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// VersionListResponse wraps a note's ledger.
type VersionListResponse struct {
	Versions []models.NoteVersion `json:"versions" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}
