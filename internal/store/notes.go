package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// CreateNote inserts the note head and its first version in one transaction.
// The caller provides a fully populated note with CurrentVersion == 1 and the
// matching version row.
func (db *DB) CreateNote(n *models.Note, v *models.NoteVersion) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (id, patient_id, encounter_id, note_type, title,
		                   current_version, locked, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`, n.ID, n.PatientID, n.EncounterID, string(n.Type), n.Title,
		n.CurrentVersion, n.CreatedBy, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert note: %w", err)
	}

	if err := insertVersion(tx, v); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendVersion commits one new version for a note. The note head's
// current_version is advanced in the same transaction, guarded by an
// optimistic check against the version the caller read. A lost race returns
// apperr.ErrConflict and leaves no partial row behind.
func (db *DB) AppendVersion(v *models.NoteVersion) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE notes SET current_version = ?, updated_at = ?
		WHERE id = ? AND current_version = ?
	`, v.VersionNumber, v.CreatedAt, v.NoteID, v.VersionNumber-1)
	if err != nil {
		return fmt.Errorf("store: advance current version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		// Either the note vanished or another writer got there first.
		var exists int
		if scanErr := tx.QueryRow(`SELECT 1 FROM notes WHERE id = ?`, v.NoteID).Scan(&exists); scanErr != nil {
			return apperr.ErrNotFound
		}
		return apperr.ErrConflict
	}

	if err := insertVersion(tx, v); err != nil {
		return err
	}
	return tx.Commit()
}

// insertVersion appends one immutable row to the ledger.
func insertVersion(tx *sql.Tx, v *models.NoteVersion) error {
	var structured, diffJSON, reason any
	if v.StructuredData != nil {
		structured = string(v.StructuredData)
	}
	if v.DiffFromPrev != nil {
		diffJSON = string(v.DiffFromPrev)
	}
	if v.EditReason != "" {
		reason = v.EditReason
	}
	_, err := tx.Exec(`
		INSERT INTO note_versions (note_id, version_number, content_text, content_html,
		                           structured_data, diff_json, editor, edit_reason,
		                           word_count, char_count, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.NoteID, v.VersionNumber, v.ContentText, v.ContentHTML,
		structured, diffJSON, v.Editor, reason,
		v.WordCount, v.CharCount, v.Checksum, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert version: %w", err)
	}
	return nil
}

// GetNote returns the note head, including its lock record when locked.
func (db *DB) GetNote(id string) (*models.Note, error) {
	n := &models.Note{}
	var noteType string
	err := db.conn.QueryRow(`
		SELECT id, patient_id, encounter_id, note_type, title,
		       current_version, locked, created_by, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.PatientID, &n.EncounterID, &noteType, &n.Title,
		&n.CurrentVersion, &n.Locked, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	n.Type = models.NoteType(noteType)

	if n.Locked {
		rec, err := db.GetLock(id)
		if err != nil {
			return nil, err
		}
		n.Lock = rec
	}
	return n, nil
}

// ListNotes returns note heads for a patient, newest first. patientID <= 0
// lists across all patients.
func (db *DB) ListNotes(patientID int64, limit, offset int) ([]models.Note, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if patientID > 0 {
		where = "WHERE patient_id = ?"
		args = append(args, patientID)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, patient_id, encounter_id, note_type, title,
		       current_version, locked, created_by, created_at, updated_at
		FROM notes `+where+`
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		var noteType string
		if err := rows.Scan(&n.ID, &n.PatientID, &n.EncounterID, &noteType, &n.Title,
			&n.CurrentVersion, &n.Locked, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		n.Type = models.NoteType(noteType)
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// Versions returns a note's full ledger in version order.
func (db *DB) Versions(noteID string) ([]models.NoteVersion, error) {
	rows, err := db.conn.Query(`
		SELECT note_id, version_number, content_text, content_html,
		       structured_data, diff_json, editor, edit_reason,
		       word_count, char_count, checksum, created_at
		FROM note_versions
		WHERE note_id = ?
		ORDER BY version_number
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: versions: %w", err)
	}
	defer rows.Close()

	var out []models.NoteVersion
	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Version returns a single ledger entry.
func (db *DB) Version(noteID string, number int) (*models.NoteVersion, error) {
	row := db.conn.QueryRow(`
		SELECT note_id, version_number, content_text, content_html,
		       structured_data, diff_json, editor, edit_reason,
		       word_count, char_count, checksum, created_at
		FROM note_versions
		WHERE note_id = ? AND version_number = ?
	`, noteID, number)
	v, err := scanVersion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: version: %w", err)
	}
	return v, nil
}

func scanVersion(scan func(dest ...any) error) (*models.NoteVersion, error) {
	v := &models.NoteVersion{}
	var structured, diffJSON, reason sql.NullString
	err := scan(&v.NoteID, &v.VersionNumber, &v.ContentText, &v.ContentHTML,
		&structured, &diffJSON, &v.Editor, &reason,
		&v.WordCount, &v.CharCount, &v.Checksum, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if structured.Valid {
		v.StructuredData = []byte(structured.String)
	}
	if diffJSON.Valid {
		v.DiffFromPrev = []byte(diffJSON.String)
	}
	if reason.Valid {
		v.EditReason = reason.String
	}
	return v, nil
}

// Lock transitions a note to the locked state and records who locked it and
// why. Locking an already-locked note returns apperr.ErrConflict.
func (db *DB) Lock(rec *models.LockRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var locked bool
	err = tx.QueryRow(`SELECT locked FROM notes WHERE id = ?`, rec.NoteID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: lock lookup: %w", err)
	}
	if locked {
		return apperr.ErrConflict
	}

	if _, err := tx.Exec(`UPDATE notes SET locked = 1, updated_at = ? WHERE id = ?`,
		rec.LockedAt, rec.NoteID); err != nil {
		return fmt.Errorf("store: mark locked: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO note_locks (note_id, locked_by, locked_reason, locked_at)
		VALUES (?, ?, ?, ?)
	`, rec.NoteID, rec.LockedBy, rec.Reason, rec.LockedAt); err != nil {
		return fmt.Errorf("store: insert lock record: %w", err)
	}
	return tx.Commit()
}

// GetLock returns the lock record for a note, or apperr.ErrNotFound when the
// note is not locked.
func (db *DB) GetLock(noteID string) (*models.LockRecord, error) {
	rec := &models.LockRecord{NoteID: noteID}
	err := db.conn.QueryRow(`
		SELECT locked_by, locked_reason, locked_at FROM note_locks WHERE note_id = ?
	`, noteID).Scan(&rec.LockedBy, &rec.Reason, &rec.LockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get lock: %w", err)
	}
	return rec, nil
}
