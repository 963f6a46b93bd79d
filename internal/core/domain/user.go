package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// RegisteredUser is one accepted submission, stored in the owning tenant's
// isolated namespace. Fields has no fixed shape beyond the scalar FieldValue
// restriction; it holds exactly what the validation engine accepted.
// Submissions are create-only: no update or delete path exists.
type RegisteredUser struct {
	ID        string
	TenantID  string
	Fields    map[string]FieldValue
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FieldValueKind int

const (
	KindString FieldValueKind = iota
	KindNumber
	KindBool
)

// FieldValue is a closed scalar union: string, number, or boolean. Submitted
// JSON values of any other shape (object, array, null) are rejected at decode
// time, keeping the storage layer type-safe while staying schema-flexible.
type FieldValue struct {
	Kind FieldValueKind
	Str  string
	Num  float64
	Bool bool
}

func StringValue(s string) FieldValue  { return FieldValue{Kind: KindString, Str: s} }
func NumberValue(n float64) FieldValue { return FieldValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) FieldValue      { return FieldValue{Kind: KindBool, Bool: b} }

// Text returns the string coercion used by length, pattern, and type checks.
func (v FieldValue) Text() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	default:
		return errors.New("field values must be string, number, or boolean")
	}
	return nil
}
