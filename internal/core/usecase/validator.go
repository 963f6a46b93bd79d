package usecase

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/formgate/formgate/internal/core/domain"
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStripPattern = regexp.MustCompile(`[\s\-()]`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// ValidationResult is the verdict for one submission. Errors maps failing
// field ids to a single message each; Fields holds only values that were
// present and passed every applicable check.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
	Fields map[string]domain.FieldValue
}

// Validator checks submitted data against an admin-authored field schema. It
// is pure with respect to its inputs: no datastore, no request context, and
// identical results for identical calls. The only internal state is a cache
// of compiled admin patterns.
//
// Message policy: min/max-length failures always use the computed default
// message; the field's custom ErrorMessage covers required, pattern, and
// type-specific failures.
type Validator struct {
	patterns sync.Map // pattern string → *regexp.Regexp (nil when uncompilable)
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate walks fields in schema order. Per field the first failing rule
// wins and the remaining rules are skipped: required, then (for present
// values) min length, max length, pattern, and the type-specific check. An
// optional field with an empty value passes but is not added to Fields.
func (v *Validator) Validate(fields []domain.FieldDefinition, data map[string]domain.FieldValue) ValidationResult {
	result := ValidationResult{
		Errors: make(map[string]string),
		Fields: make(map[string]domain.FieldValue),
	}

	for _, field := range fields {
		value, present := data[field.ID]
		text := value.Text()
		empty := !present || strings.TrimSpace(text) == ""

		if field.Validation.Required && empty {
			result.Errors[field.ID] = fieldMessage(field, field.Label+" is required")
			continue
		}
		if empty {
			continue
		}

		length := utf8.RuneCountInString(text)
		if min := field.Validation.MinLength; min != nil && length < *min {
			result.Errors[field.ID] = fmt.Sprintf("%s must be at least %d characters", field.Label, *min)
			continue
		}
		if max := field.Validation.MaxLength; max != nil && length > *max {
			result.Errors[field.ID] = fmt.Sprintf("%s must be at most %d characters", field.Label, *max)
			continue
		}

		// An admin pattern runs before the type check so it can narrow the
		// default type semantics.
		if re := v.pattern(field.Validation.Pattern); re != nil && !re.MatchString(text) {
			result.Errors[field.ID] = fieldMessage(field, field.Label+" format is invalid")
			continue
		}

		if msg, ok := checkType(field, value, text); !ok {
			result.Errors[field.ID] = fieldMessage(field, msg)
			continue
		}

		result.Fields[field.ID] = value
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func checkType(field domain.FieldDefinition, value domain.FieldValue, text string) (string, bool) {
	switch field.Type {
	case domain.FieldEmail:
		if !emailPattern.MatchString(text) {
			return field.Label + " must be a valid email address", false
		}
	case domain.FieldPhone:
		if !phonePattern.MatchString(phoneStripPattern.ReplaceAllString(text, "")) {
			return field.Label + " must be a valid phone number", false
		}
	case domain.FieldNumber:
		if value.Kind != domain.KindNumber {
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return field.Label + " must be a number", false
			}
		}
	case domain.FieldSelect:
		if len(field.Options) == 0 {
			return "", true
		}
		for _, opt := range field.Options {
			if text == opt.Value {
				return "", true
			}
		}
		return field.Label + " must be one of the allowed options", false
	}
	return "", true
}

// pattern returns the compiled admin pattern, or nil when the field has none
// or the pattern does not compile. A malformed pattern must not make the form
// unusable: it is logged and the constraint is skipped.
func (v *Validator) pattern(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	if cached, ok := v.patterns.Load(expr); ok {
		return cached.(*regexp.Regexp)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		log.Printf("invalid field pattern %q, skipping constraint: %v", expr, err)
		re = nil
	}
	v.patterns.Store(expr, re)
	return re
}

func fieldMessage(field domain.FieldDefinition, fallback string) string {
	if field.ErrorMessage != "" {
		return field.ErrorMessage
	}
	return fallback
}
