// Package attach tracks binary artifacts linked to notes and their
// asynchronous text-extraction lifecycle. Extraction itself runs outside this
// process; the registry only records status and hands binaries off through a
// spool directory.
package attach

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/lockguard"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/store"
)

// Events receives attachment lifecycle events. May be nil.
type Events interface {
	PublishChange(kind, noteID, ref string)
}

// Registry is the authoritative component for attachment metadata and blobs.
type Registry struct {
	db     *store.DB
	blobs  *BlobStore
	events Events
	logger *slog.Logger

	queue chan string // attachment ids awaiting extraction dispatch
}

// NewRegistry creates a registry. events may be nil.
func NewRegistry(db *store.DB, blobs *BlobStore, events Events, logger *slog.Logger) *Registry {
	return &Registry{
		db:     db,
		blobs:  blobs,
		events: events,
		logger: logger,
		queue:  make(chan string, 128),
	}
}

// Upload registers a new attachment for a note: the binary is stored, a
// pending registry row is created, and the attachment is queued for
// extraction dispatch. A locked note rejects the upload.
func (r *Registry) Upload(_ context.Context, noteID, filename, mimeType string, body io.Reader, actor string) (*models.NoteAttachment, error) {
	if filename == "" {
		return nil, apperr.Invalid("filename", "cannot be blank")
	}
	n, err := r.db.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	if err := lockguard.EnsureWritable(n); err != nil {
		return nil, err
	}

	a := &models.NoteAttachment{
		ID:         uuid.NewString(),
		NoteID:     noteID,
		Filename:   filename,
		MimeType:   mimeType,
		Status:     models.ExtractionPending,
		UploadedBy: actor,
		CreatedAt:  time.Now().UTC(),
	}
	if a.MimeType == "" {
		a.MimeType = "application/octet-stream"
	}

	size, err := r.blobs.Write(a.ID, body)
	if err != nil {
		return nil, err
	}
	a.SizeBytes = size

	if err := r.db.InsertAttachment(a); err != nil {
		// Keep the registry consistent: no row means no blob.
		_ = r.blobs.Delete(a.ID)
		return nil, err
	}

	r.enqueue(a.ID)
	r.emit("attachment.uploaded", noteID, a.ID)
	return a, nil
}

// Find returns the attachment metadata, verifying it belongs to the note.
func (r *Registry) Find(_ context.Context, noteID, attachmentID string) (*models.NoteAttachment, error) {
	a, err := r.db.GetAttachment(attachmentID)
	if err != nil {
		return nil, err
	}
	if a.NoteID != noteID {
		return nil, apperr.ErrNotFound
	}
	return a, nil
}

// Open returns the attachment metadata and a reader over its binary,
// verifying the attachment belongs to the given note.
func (r *Registry) Open(_ context.Context, noteID, attachmentID string) (*models.NoteAttachment, io.ReadCloser, error) {
	a, err := r.db.GetAttachment(attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if a.NoteID != noteID {
		return nil, nil, apperr.ErrNotFound
	}
	rc, err := r.blobs.Open(a.ID)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// Delete removes a registry entry and its blob. The version ledger is never
// touched; deleting attachments does not rewrite history.
func (r *Registry) Delete(_ context.Context, noteID, attachmentID string) error {
	a, err := r.db.GetAttachment(attachmentID)
	if err != nil {
		return err
	}
	if a.NoteID != noteID {
		return apperr.ErrNotFound
	}
	if err := r.db.DeleteAttachment(attachmentID); err != nil {
		return err
	}
	if err := r.blobs.Delete(attachmentID); err != nil {
		r.logger.Warn("attach: blob cleanup failed",
			slog.String("attachment_id", attachmentID),
			slog.String("error", err.Error()))
	}
	r.emit("attachment.deleted", noteID, attachmentID)
	return nil
}

// MarkExtraction applies one lifecycle transition. Legal steps are
// pending → processing and processing → completed|failed; anything else is a
// conflict. A failure is recorded on the attachment only; the note and its
// versions are unaffected.
func (r *Registry) MarkExtraction(_ context.Context, attachmentID string, status models.ExtractionStatus, extractErr string) (*models.NoteAttachment, error) {
	switch status {
	case models.ExtractionProcessing, models.ExtractionCompleted, models.ExtractionFailed:
	default:
		return nil, apperr.Invalid("status", "unknown extraction status")
	}

	a, err := r.db.GetAttachment(attachmentID)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(status) {
		return nil, apperr.ErrConflict
	}
	if status != models.ExtractionFailed {
		extractErr = ""
	}
	if err := r.db.SetExtraction(attachmentID, a.Status, status, extractErr); err != nil {
		return nil, err
	}

	a.Status = status
	a.ExtractionError = extractErr
	if status == models.ExtractionCompleted || status == models.ExtractionFailed {
		r.emit("attachment.extracted", a.NoteID, a.ID)
	}
	return a, nil
}

// Recover re-queues attachments left pending by a previous run.
func (r *Registry) Recover(ctx context.Context) error {
	pending, err := r.db.PendingAttachments()
	if err != nil {
		return err
	}
	for _, a := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.enqueue(a.ID)
	}
	if len(pending) > 0 {
		r.logger.Info("attach: requeued pending attachments", slog.Int("count", len(pending)))
	}
	return nil
}

// enqueue never blocks; a full queue is recovered later by Recover.
func (r *Registry) enqueue(id string) {
	select {
	case r.queue <- id:
	default:
		r.logger.Warn("attach: dispatch queue full", slog.String("attachment_id", id))
	}
}

func (r *Registry) emit(kind, noteID, ref string) {
	if r.events != nil {
		r.events.PublishChange(kind, noteID, ref)
	}
}
