//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			note_id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// UpsertSearch replaces the search document for a note with the content of
// its latest committed version.
func (db *DB) UpsertSearch(noteID, title, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin fts tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE note_id = ?`, noteID)
	if _, err := tx.Exec(`INSERT INTO notes_fts (note_id, title, body) VALUES (?, ?, ?)`,
		noteID, title, body); err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return tx.Commit()
}

// Search performs an FTS5 full-text search over current note content and
// returns ranked hits with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT note_id,
		       title,
		       snippet(notes_fts, 2, '<b>', '</b>', '...', 64)
		FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.NoteID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
