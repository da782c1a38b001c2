// Package models defines the domain types for Algiz.
package models

import (
	"encoding/json"
	"time"
)

// NoteType enumerates the supported clinical note formats.
type NoteType string

const (
	TypeFreeText     NoteType = "free_text"
	TypeSOAP         NoteType = "soap"
	TypeProcedure    NoteType = "procedure"
	TypeConsultation NoteType = "consultation"
	TypeDischarge    NoteType = "discharge"
	TypeProgress     NoteType = "progress"
)

// NoteTypes lists every valid NoteType, in declaration order.
func NoteTypes() []NoteType {
	return []NoteType{
		TypeFreeText, TypeSOAP, TypeProcedure,
		TypeConsultation, TypeDischarge, TypeProgress,
	}
}

// Valid reports whether t is a known note type.
func (t NoteType) Valid() bool {
	for _, k := range NoteTypes() {
		if t == k {
			return true
		}
	}
	return false
}

// Note is the mutable head record of a clinical note. Content lives in the
// version ledger; the head only tracks identity, the current version pointer,
// and lock status.
type Note struct {
	ID             string    `json:"id"`
	PatientID      int64     `json:"patient_id"`
	EncounterID    string    `json:"encounter_id,omitempty"`
	Type           NoteType  `json:"note_type"`
	Title          string    `json:"title"`
	CurrentVersion int       `json:"current_version"`
	Locked         bool      `json:"is_locked"`
	Lock           *LockRecord `json:"lock,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NoteVersion is one immutable entry in a note's version ledger.
// Version numbers start at 1 and are gap-free per note.
type NoteVersion struct {
	NoteID         string          `json:"note_id"`
	VersionNumber  int             `json:"version_number"`
	ContentText    string          `json:"content_text"`
	ContentHTML    string          `json:"content_html,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	DiffFromPrev   json.RawMessage `json:"diff_from_previous,omitempty"`
	Editor         string          `json:"editor"`
	EditReason     string          `json:"edit_reason,omitempty"`
	WordCount      int             `json:"word_count"`
	CharCount      int             `json:"char_count"`
	Checksum       string          `json:"checksum"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LockRecord exists only while a note is locked.
type LockRecord struct {
	NoteID   string    `json:"-"`
	LockedBy string    `json:"locked_by"`
	Reason   string    `json:"locked_reason"`
	LockedAt time.Time `json:"locked_at"`
}

// ExtractionStatus is the lifecycle state of an attachment's text extraction.
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// CanTransition reports whether moving from s to next is a legal step.
// pending → processing → completed|failed; terminal states accept nothing.
func (s ExtractionStatus) CanTransition(next ExtractionStatus) bool {
	switch s {
	case ExtractionPending:
		return next == ExtractionProcessing
	case ExtractionProcessing:
		return next == ExtractionCompleted || next == ExtractionFailed
	default:
		return false
	}
}

// NoteAttachment is a binary artifact linked to a note. Its extraction
// lifecycle is independent of the version ledger.
type NoteAttachment struct {
	ID              string           `json:"id"`
	NoteID          string           `json:"note_id"`
	Filename        string           `json:"filename"`
	MimeType        string           `json:"mime_type"`
	SizeBytes       int64            `json:"size_bytes"`
	Status          ExtractionStatus `json:"extraction_status"`
	ExtractionError string           `json:"extraction_error,omitempty"`
	UploadedBy      string           `json:"uploaded_by"`
	CreatedAt       time.Time        `json:"created_at"`
}
