// Package lockguard implements the per-note lock state machine that gates
// all write operations. A note is either unlocked or locked; locking is a
// one-way transition with no unlock operation in this contract.
package lockguard

import (
	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// EnsureWritable rejects writes (new versions, new attachments) against a
// locked note. The returned error carries the reason recorded at lock time.
func EnsureWritable(n *models.Note) error {
	if !n.Locked {
		return nil
	}
	reason := ""
	if n.Lock != nil {
		reason = n.Lock.Reason
	}
	return &apperr.Locked{Reason: reason}
}

// EnsureLockable validates the unlocked → locked transition. Locking an
// already-locked note is a conflict, not a no-op: the caller must see that
// another actor sealed the note first.
func EnsureLockable(n *models.Note) error {
	if n.Locked {
		return apperr.ErrConflict
	}
	return nil
}
