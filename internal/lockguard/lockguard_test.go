package lockguard

import (
	"errors"
	"testing"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

func TestUnlockedNoteIsWritable(t *testing.T) {
	if err := EnsureWritable(&models.Note{}); err != nil {
		t.Errorf("EnsureWritable = %v, want nil", err)
	}
	if err := EnsureLockable(&models.Note{}); err != nil {
		t.Errorf("EnsureLockable = %v, want nil", err)
	}
}

func TestLockedNoteRejectsWritesWithReason(t *testing.T) {
	n := &models.Note{
		Locked: true,
		Lock:   &models.LockRecord{Reason: "Co-signed by Dr. X"},
	}
	err := EnsureWritable(n)
	if !errors.Is(err, apperr.ErrLocked) {
		t.Fatalf("EnsureWritable = %v, want ErrLocked", err)
	}
	var locked *apperr.Locked
	if !errors.As(err, &locked) || locked.Reason != "Co-signed by Dr. X" {
		t.Errorf("reason not carried: %v", err)
	}
}

func TestLockingTwiceConflicts(t *testing.T) {
	n := &models.Note{Locked: true}
	if err := EnsureLockable(n); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("EnsureLockable = %v, want ErrConflict", err)
	}
}
