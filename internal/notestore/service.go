// Package notestore orchestrates the version ledger, lock guard, diff engine,
// and index publisher behind the note write/read operations.
package notestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/diff"
	"github.com/starford/algiz/internal/lockguard"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/store"
)

// Publisher receives committed versions for search indexing. Implementations
// must not block the caller.
type Publisher interface {
	Publish(noteID string, version int, title, contentText string)
}

// Events receives domain events for the live event stream. May be nil.
// ref identifies what changed within the note: a version number or an
// attachment id.
type Events interface {
	PublishChange(kind, noteID, ref string)
}

// NoteDetail is the full read model: head, ledger, and attachments.
type NoteDetail struct {
	models.Note
	Versions    []models.NoteVersion    `json:"versions"`
	Attachments []models.NoteAttachment `json:"attachments"`
}

// Service is the authoritative entry point for note writes. All version
// commits for one note go through the same per-note critical section.
type Service struct {
	db     *store.DB
	pub    Publisher
	events Events

	writeLocks sync.Map // note id -> *sync.Mutex
}

// NewService creates a note service. events may be nil.
func NewService(db *store.DB, pub Publisher, events Events) *Service {
	return &Service{db: db, pub: pub, events: events}
}

// perNote returns the write mutex for one note id.
func (s *Service) perNote(id string) *sync.Mutex {
	v, _ := s.writeLocks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Create validates the input and commits the note head together with ledger
// version 1. The first version carries no edit reason and no diff.
func (s *Service) Create(_ context.Context, p CreateParams) (*models.Note, error) {
	if err := p.Validate(); err != nil {
		return nil, &apperr.Validation{Msg: err.Error()}
	}

	now := time.Now().UTC()
	n := &models.Note{
		ID:             uuid.NewString(),
		PatientID:      p.PatientID,
		EncounterID:    p.EncounterID,
		Type:           p.Type,
		Title:          p.Title,
		CurrentVersion: 1,
		CreatedBy:      p.Author,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	v := buildVersion(n.ID, 1, p.ContentText, p.ContentHTML, p.StructuredData, p.Author, "", nil, now)

	if err := s.db.CreateNote(n, v); err != nil {
		return nil, err
	}

	s.pub.Publish(n.ID, 1, n.Title, v.ContentText)
	s.emit("note.created", n.ID, 1)
	return n, nil
}

// Update appends the next version to the ledger. The commit runs inside the
// note's critical section; if the optimistic check in the store still reports
// a conflict (another process advanced the ledger), the attempt is retried
// once against the refreshed head before surfacing ErrConflict.
func (s *Service) Update(_ context.Context, noteID string, p UpdateParams) (*models.NoteVersion, error) {
	if err := p.Validate(); err != nil {
		return nil, &apperr.Validation{Msg: err.Error()}
	}

	mu := s.perNote(noteID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; ; attempt++ {
		n, err := s.db.GetNote(noteID)
		if err != nil {
			return nil, err
		}
		if err := lockguard.EnsureWritable(n); err != nil {
			return nil, err
		}

		prev, err := s.db.Version(noteID, n.CurrentVersion)
		if err != nil {
			return nil, fmt.Errorf("notestore: read head version: %w", err)
		}

		diffJSON, err := diff.Marshal(prev.ContentText, p.ContentText)
		if err != nil {
			return nil, fmt.Errorf("notestore: encode diff: %w", err)
		}

		now := time.Now().UTC()
		v := buildVersion(noteID, n.CurrentVersion+1, p.ContentText, p.ContentHTML,
			p.StructuredData, p.Editor, p.EditReason, diffJSON, now)

		err = s.db.AppendVersion(v)
		if errors.Is(err, apperr.ErrConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.pub.Publish(noteID, v.VersionNumber, n.Title, v.ContentText)
		s.emit("note.versioned", noteID, v.VersionNumber)
		return v, nil
	}
}

// Get returns the note head with its full ledger and attachment list.
// It never mutates state.
func (s *Service) Get(_ context.Context, noteID string) (*NoteDetail, error) {
	n, err := s.db.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	versions, err := s.db.Versions(noteID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.db.Attachments(noteID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []models.NoteVersion{}
	}
	if attachments == nil {
		attachments = []models.NoteAttachment{}
	}
	return &NoteDetail{Note: *n, Versions: versions, Attachments: attachments}, nil
}

// List returns note heads, optionally filtered by patient.
func (s *Service) List(_ context.Context, patientID int64, limit, offset int) ([]models.Note, int, error) {
	notes, total, err := s.db.ListNotes(patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, total, nil
}

// Versions returns the full ledger for a note.
func (s *Service) Versions(_ context.Context, noteID string) ([]models.NoteVersion, error) {
	if _, err := s.db.GetNote(noteID); err != nil {
		return nil, err
	}
	return s.db.Versions(noteID)
}

// Version returns one ledger entry.
func (s *Service) Version(_ context.Context, noteID string, number int) (*models.NoteVersion, error) {
	return s.db.Version(noteID, number)
}

// Lock seals a note against further versions and attachments. Locking an
// already-locked note fails with ErrConflict.
func (s *Service) Lock(_ context.Context, noteID, reason, actor string) (*models.Note, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Invalid("reason", "cannot be blank")
	}

	mu := s.perNote(noteID)
	mu.Lock()
	defer mu.Unlock()

	n, err := s.db.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	if err := lockguard.EnsureLockable(n); err != nil {
		return nil, err
	}

	rec := &models.LockRecord{
		NoteID:   noteID,
		LockedBy: actor,
		Reason:   reason,
		LockedAt: time.Now().UTC(),
	}
	if err := s.db.Lock(rec); err != nil {
		return nil, err
	}

	s.emit("note.locked", noteID, n.CurrentVersion)
	return s.db.GetNote(noteID)
}

// Search delegates to the full-text index over current note content.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	return s.db.Search(query, limit)
}

func (s *Service) emit(kind, noteID string, version int) {
	if s.events != nil {
		s.events.PublishChange(kind, noteID, strconv.Itoa(version))
	}
}

// buildVersion derives the stored counters and checksum for a new ledger row.
func buildVersion(noteID string, number int, text, html string, structured []byte,
	editor, reason string, diffJSON []byte, at time.Time) *models.NoteVersion {
	sum := sha256.Sum256([]byte(text))
	return &models.NoteVersion{
		NoteID:         noteID,
		VersionNumber:  number,
		ContentText:    text,
		ContentHTML:    html,
		StructuredData: structured,
		DiffFromPrev:   diffJSON,
		Editor:         editor,
		EditReason:     reason,
		WordCount:      len(strings.Fields(text)),
		CharCount:      utf8.RuneCountInString(text),
		Checksum:       hex.EncodeToString(sum[:]),
		CreatedAt:      at,
	}
}
