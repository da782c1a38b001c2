// Package store provides the SQLite-backed authoritative storage for notes,
// their append-only version ledger, lock records, and attachment metadata.
//
// Version rows are insert-only: no UPDATE or DELETE statement for
// note_versions exists in this package.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id              TEXT PRIMARY KEY,
	patient_id      INTEGER NOT NULL,
	encounter_id    TEXT NOT NULL DEFAULT '',
	note_type       TEXT NOT NULL,
	title           TEXT NOT NULL,
	current_version INTEGER NOT NULL DEFAULT 0,
	locked          INTEGER NOT NULL DEFAULT 0,
	created_by      TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_patient ON notes(patient_id);

CREATE TABLE IF NOT EXISTS note_versions (
	note_id         TEXT NOT NULL REFERENCES notes(id),
	version_number  INTEGER NOT NULL,
	content_text    TEXT NOT NULL,
	content_html    TEXT NOT NULL DEFAULT '',
	structured_data TEXT,
	diff_json       TEXT,
	editor          TEXT NOT NULL DEFAULT '',
	edit_reason     TEXT,
	word_count      INTEGER NOT NULL DEFAULT 0,
	char_count      INTEGER NOT NULL DEFAULT 0,
	checksum        TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	PRIMARY KEY (note_id, version_number)
);

CREATE TABLE IF NOT EXISTS note_locks (
	note_id       TEXT PRIMARY KEY REFERENCES notes(id),
	locked_by     TEXT NOT NULL,
	locked_reason TEXT NOT NULL,
	locked_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS attachments (
	id                TEXT PRIMARY KEY,
	note_id           TEXT NOT NULL REFERENCES notes(id),
	filename          TEXT NOT NULL,
	mime_type         TEXT NOT NULL DEFAULT 'application/octet-stream',
	size_bytes        INTEGER NOT NULL DEFAULT 0,
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	extraction_error  TEXT NOT NULL DEFAULT '',
	uploaded_by       TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attachments_note ON attachments(note_id);
`

// DB wraps a sql.DB with note-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
