package domain

import "time"

// FieldType enumerates the input kinds a tenant can put on its form. The type
// drives default rendering and the type-specific validation step; general
// constraints (required, length, pattern) apply to every type.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldPhone, FieldNumber, FieldTextarea, FieldSelect:
		return true
	}
	return false
}

// FieldOption is one selectable choice for a select field.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldValidation holds the admin-authored constraints for one field. Nil
// length bounds mean unconstrained; an empty pattern means no pattern check.
type FieldValidation struct {
	Required  bool   `json:"required"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// FieldDefinition describes one form field. ID doubles as the lookup key in
// submitted data and the storage key of the accepted value. ErrorMessage is a
// single per-field message shown for any failure, not one message per rule.
type FieldDefinition struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Type         FieldType       `json:"type"`
	Placeholder  string          `json:"placeholder,omitempty"`
	Options      []FieldOption   `json:"options,omitempty"`
	Validation   FieldValidation `json:"validation"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Schema is the ordered field list of one tenant's registration form. Updates
// replace Fields wholesale; there is no versioning.
type Schema struct {
	TenantID  string
	Fields    []FieldDefinition
	CreatedAt time.Time
	UpdatedAt time.Time
}
