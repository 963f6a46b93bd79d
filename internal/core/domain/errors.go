package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidTenantID    = errors.New("invalid tenant id")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries the per-field failure messages of one rejected
// submission, keyed by field id. It is recoverable and never fatal: callers
// surface it as a structured 400, not a server error.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for id, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", id, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// SchemaDefinitionError reports why an admin-authored field list was rejected
// by the registry before persistence.
type SchemaDefinitionError struct {
	Reasons []string
}

func (e *SchemaDefinitionError) Error() string {
	return "invalid schema definition: " + strings.Join(e.Reasons, "; ")
}
