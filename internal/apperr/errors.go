// Package apperr defines the error taxonomy shared across the store.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrLocked     = errors.New("note is locked")
	ErrConflict   = errors.New("version conflict")
)

// Locked reports a write attempted against a locked note. It carries the
// reason recorded at lock time so callers can surface it.
type Locked struct {
	Reason string
}

func (e *Locked) Error() string {
	if e.Reason == "" {
		return "note is locked"
	}
	return fmt.Sprintf("note is locked: %s", e.Reason)
}

// Is makes errors.Is(err, ErrLocked) match.
func (e *Locked) Is(target error) bool { return target == ErrLocked }

// Validation reports a rejected input with the offending field.
type Validation struct {
	Field string
	Msg   string
}

func (e *Validation) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *Validation) Is(target error) bool { return target == ErrValidation }

// Invalid is a shorthand constructor for field validation failures.
func Invalid(field, msg string) error {
	return &Validation{Field: field, Msg: msg}
}
