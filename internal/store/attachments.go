package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// InsertAttachment registers a new attachment row.
func (db *DB) InsertAttachment(a *models.NoteAttachment) error {
	_, err := db.conn.Exec(`
		INSERT INTO attachments (id, note_id, filename, mime_type, size_bytes,
		                         extraction_status, extraction_error, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)
	`, a.ID, a.NoteID, a.Filename, a.MimeType, a.SizeBytes,
		string(a.Status), a.UploadedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert attachment: %w", err)
	}
	return nil
}

// GetAttachment returns one attachment by id.
func (db *DB) GetAttachment(id string) (*models.NoteAttachment, error) {
	row := db.conn.QueryRow(`
		SELECT id, note_id, filename, mime_type, size_bytes,
		       extraction_status, extraction_error, uploaded_by, created_at
		FROM attachments WHERE id = ?
	`, id)
	a, err := scanAttachment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get attachment: %w", err)
	}
	return a, nil
}

// Attachments lists a note's attachments, oldest first.
func (db *DB) Attachments(noteID string) ([]models.NoteAttachment, error) {
	rows, err := db.conn.Query(`
		SELECT id, note_id, filename, mime_type, size_bytes,
		       extraction_status, extraction_error, uploaded_by, created_at
		FROM attachments WHERE note_id = ? ORDER BY created_at, id
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: attachments: %w", err)
	}
	defer rows.Close()

	var out []models.NoteAttachment
	for rows.Next() {
		a, err := scanAttachment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// PendingAttachments returns attachments still awaiting extraction dispatch.
func (db *DB) PendingAttachments() ([]models.NoteAttachment, error) {
	rows, err := db.conn.Query(`
		SELECT id, note_id, filename, mime_type, size_bytes,
		       extraction_status, extraction_error, uploaded_by, created_at
		FROM attachments WHERE extraction_status = ? ORDER BY created_at, id
	`, string(models.ExtractionPending))
	if err != nil {
		return nil, fmt.Errorf("store: pending attachments: %w", err)
	}
	defer rows.Close()

	var out []models.NoteAttachment
	for rows.Next() {
		a, err := scanAttachment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SetExtraction moves an attachment from one lifecycle state to the next.
// The from state is part of the WHERE clause so an out-of-order transition
// (or a concurrent one) affects zero rows and returns apperr.ErrConflict.
func (db *DB) SetExtraction(id string, from, to models.ExtractionStatus, extractErr string) error {
	res, err := db.conn.Exec(`
		UPDATE attachments SET extraction_status = ?, extraction_error = ?
		WHERE id = ? AND extraction_status = ?
	`, string(to), extractErr, id, string(from))
	if err != nil {
		return fmt.Errorf("store: set extraction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if scanErr := db.conn.QueryRow(`SELECT 1 FROM attachments WHERE id = ?`, id).Scan(&exists); scanErr != nil {
			return apperr.ErrNotFound
		}
		return apperr.ErrConflict
	}
	return nil
}

// DeleteAttachment removes a registry entry. Version rows are never touched.
func (db *DB) DeleteAttachment(id string) error {
	res, err := db.conn.Exec(`DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete attachment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanAttachment(scan func(dest ...any) error) (*models.NoteAttachment, error) {
	a := &models.NoteAttachment{}
	var status string
	err := scan(&a.ID, &a.NoteID, &a.Filename, &a.MimeType, &a.SizeBytes,
		&status, &a.ExtractionError, &a.UploadedBy, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = models.ExtractionStatus(status)
	return a, nil
}
