package notestore

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/algiz/internal/models"
)

// CreateParams is the validated input for Service.Create.
type CreateParams struct {
	PatientID      int64
	EncounterID    string
	Type           models.NoteType
	Title          string
	ContentText    string
	ContentHTML    string
	StructuredData json.RawMessage
	Author         string
}

// Validate checks the create input.
func (p CreateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PatientID, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Type, validation.Required, validation.By(noteTypeRule)),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.ContentText, validation.Required),
		validation.Field(&p.StructuredData, validation.By(jsonRule)),
	)
}

// UpdateParams is the validated input for Service.Update. Every amending
// version needs an edit reason of at least three characters.
type UpdateParams struct {
	ContentText    string
	ContentHTML    string
	StructuredData json.RawMessage
	EditReason     string
	Editor         string
}

// Validate checks the update input.
func (p UpdateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ContentText, validation.Required),
		validation.Field(&p.EditReason, validation.Required, validation.Length(3, 0)),
		validation.Field(&p.StructuredData, validation.By(jsonRule)),
	)
}

func noteTypeRule(value any) error {
	t, _ := value.(models.NoteType)
	if !t.Valid() {
		return fmt.Errorf("must be one of %v", models.NoteTypes())
	}
	return nil
}

// jsonRule accepts an absent payload but rejects malformed JSON. The payload
// itself stays opaque; schema semantics are external.
func jsonRule(value any) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return fmt.Errorf("must be valid JSON")
	}
	return nil
}
