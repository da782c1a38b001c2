package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/store"
	"github.com/starford/algiz/internal/testutil"
)

func newNote(patientID int64, title string) (*models.Note, *models.NoteVersion) {
	now := time.Now().UTC()
	n := &models.Note{
		ID:             uuid.NewString(),
		PatientID:      patientID,
		Type:           models.TypeProgress,
		Title:          title,
		CurrentVersion: 1,
		CreatedBy:      "dr.adams",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	v := &models.NoteVersion{
		NoteID:        n.ID,
		VersionNumber: 1,
		ContentText:   "Stable overnight.",
		Editor:        "dr.adams",
		WordCount:     2,
		CharCount:     16,
		Checksum:      "abc",
		CreatedAt:     now,
	}
	return n, v
}

func seed(t *testing.T, db *store.DB, patientID int64, title string) *models.Note {
	t.Helper()
	n, v := newNote(patientID, title)
	if err := db.CreateNote(n, v); err != nil {
		t.Fatal(err)
	}
	return n
}

func nextVersion(noteID string, number int, text string) *models.NoteVersion {
	return &models.NoteVersion{
		NoteID:        noteID,
		VersionNumber: number,
		ContentText:   text,
		Editor:        "dr.beck",
		EditReason:    "amended",
		Checksum:      "def",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestCreateNoteRoundTrip(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")

	got, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Progress Note" || got.CurrentVersion != 1 || got.Locked {
		t.Errorf("unexpected head: %+v", got)
	}
	if got.Lock != nil {
		t.Error("unlocked note carries a lock record")
	}

	v, err := db.Version(n.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.ContentText != "Stable overnight." || v.EditReason != "" {
		t.Errorf("unexpected version: %+v", v)
	}
	if v.DiffFromPrev != nil {
		t.Error("version 1 must not carry a diff")
	}
}

func TestGetNoteMissing(t *testing.T) {
	db := testutil.TestStore(t)
	if _, err := db.GetNote("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendVersionAdvancesHead(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")

	if err := db.AppendVersion(nextVersion(n.ID, 2, "Improving.")); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentVersion != 2 {
		t.Errorf("current_version = %d, want 2", got.CurrentVersion)
	}
	versions, err := db.Versions(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Fatalf("ledger size = %d, want 2", len(versions))
	}
}

func TestAppendVersionStaleHeadConflicts(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")

	if err := db.AppendVersion(nextVersion(n.ID, 2, "first writer")); err != nil {
		t.Fatal(err)
	}
	// Second writer read head 1 and also tries to commit version 2.
	err := db.AppendVersion(nextVersion(n.ID, 2, "second writer"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// The lost race left no partial row behind.
	versions, err := db.Versions(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("ledger size = %d, want 2", len(versions))
	}
	if v, _ := db.Version(n.ID, 2); v.ContentText != "first writer" {
		t.Errorf("version 2 content = %q, want first writer's", v.ContentText)
	}
}

func TestAppendVersionUnknownNote(t *testing.T) {
	db := testutil.TestStore(t)
	err := db.AppendVersion(nextVersion("nope", 2, "ghost"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLockRecordsWhoAndWhy(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")

	rec := &models.LockRecord{
		NoteID:   n.ID,
		LockedBy: "dr.adams",
		Reason:   "signed",
		LockedAt: time.Now().UTC(),
	}
	if err := db.Lock(rec); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Locked || got.Lock == nil {
		t.Fatal("note not locked after Lock")
	}
	if got.Lock.LockedBy != "dr.adams" || got.Lock.Reason != "signed" {
		t.Errorf("unexpected lock record: %+v", got.Lock)
	}

	// Locking twice is a conflict, and the original record survives.
	err = db.Lock(&models.LockRecord{NoteID: n.ID, LockedBy: "dr.beck", Reason: "again", LockedAt: time.Now().UTC()})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second lock err = %v, want ErrConflict", err)
	}
	if rec, _ := db.GetLock(n.ID); rec.LockedBy != "dr.adams" {
		t.Errorf("lock record overwritten: %+v", rec)
	}
}

func TestLockUnknownNote(t *testing.T) {
	db := testutil.TestStore(t)
	err := db.Lock(&models.LockRecord{NoteID: "nope", LockedBy: "x", Reason: "y", LockedAt: time.Now().UTC()})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNotesByPatient(t *testing.T) {
	db := testutil.TestStore(t)
	seed(t, db, 1, "A")
	seed(t, db, 1, "B")
	seed(t, db, 2, "C")

	notes, total, err := db.ListNotes(1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(notes) != 2 {
		t.Errorf("patient 1: total=%d len=%d, want 2/2", total, len(notes))
	}

	_, total, err = db.ListNotes(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("all patients total = %d, want 3", total)
	}
}

func seedAttachment(t *testing.T, db *store.DB, noteID string) *models.NoteAttachment {
	t.Helper()
	a := &models.NoteAttachment{
		ID:         uuid.NewString(),
		NoteID:     noteID,
		Filename:   "scan.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  128,
		Status:     models.ExtractionPending,
		UploadedBy: "dr.adams",
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.InsertAttachment(a); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestSetExtractionGuardsFromState(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")
	a := seedAttachment(t, db, n.ID)

	if err := db.SetExtraction(a.ID, models.ExtractionPending, models.ExtractionProcessing, ""); err != nil {
		t.Fatal(err)
	}

	// Re-running the same transition finds no row in the from state.
	err := db.SetExtraction(a.ID, models.ExtractionPending, models.ExtractionProcessing, "")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("repeat transition err = %v, want ErrConflict", err)
	}

	if err := db.SetExtraction(a.ID, models.ExtractionProcessing, models.ExtractionFailed, "ocr timeout"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetAttachment(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ExtractionFailed || got.ExtractionError != "ocr timeout" {
		t.Errorf("unexpected attachment state: %+v", got)
	}

	if err := db.SetExtraction("nope", models.ExtractionPending, models.ExtractionProcessing, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestPendingAttachments(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")
	a := seedAttachment(t, db, n.ID)
	b := seedAttachment(t, db, n.ID)

	if err := db.SetExtraction(a.ID, models.ExtractionPending, models.ExtractionProcessing, ""); err != nil {
		t.Fatal(err)
	}
	pending, err := db.PendingAttachments()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("pending = %+v, want only %s", pending, b.ID)
	}
}

func TestDeleteAttachment(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")
	a := seedAttachment(t, db, n.ID)

	if err := db.DeleteAttachment(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetAttachment(a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteAttachment(a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestSearchIndexReflectsLatestUpsert(t *testing.T) {
	db := testutil.TestStore(t)
	n := seed(t, db, 42, "Progress Note")

	if err := db.UpsertSearch(n.ID, "Progress Note", "patient reports headache"); err != nil {
		t.Fatal(err)
	}
	hits, err := db.Search("headache", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].NoteID != n.ID {
		t.Fatalf("hits = %+v, want one for %s", hits, n.ID)
	}

	// Reindexing replaces the document rather than adding a second one.
	if err := db.UpsertSearch(n.ID, "Progress Note", "symptoms resolved"); err != nil {
		t.Fatal(err)
	}
	hits, err = db.Search("headache", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale content still indexed: %+v", hits)
	}
	hits, err = db.Search("resolved", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("new content not indexed: %+v", hits)
	}
}
