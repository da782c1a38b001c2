//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	// FTS5 not compiled in; search uses a plain table with LIKE matching.
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes_fts (
			note_id TEXT PRIMARY KEY,
			title   TEXT NOT NULL DEFAULT '',
			body    TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

// UpsertSearch replaces the search document for a note with the content of
// its latest committed version.
func (db *DB) UpsertSearch(noteID, title, body string) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes_fts (note_id, title, body) VALUES (?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			title = excluded.title,
			body  = excluded.body
	`, noteID, title, body)
	if err != nil {
		return fmt.Errorf("store: upsert search: %w", err)
	}
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT note_id, title, substr(body, 1, 200)
		FROM notes_fts
		WHERE title LIKE ? OR body LIKE ?
		LIMIT ?
	`, like, like, limit)
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
