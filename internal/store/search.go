package store

// SearchResult represents one full-text search hit.
type SearchResult struct {
	NoteID  string `json:"note_id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}
