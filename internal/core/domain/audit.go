package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry records one admin mutation (schema or tenant) in the shared
// store. BeforeJSON/AfterJSON snapshot the record around the change.
type AuditEntry struct {
	ID         int64           `json:"id"`
	TenantID   string          `json:"tenant_id"`
	Action     string          `json:"action"`
	Actor      string          `json:"actor"`
	BeforeJSON json.RawMessage `json:"before,omitempty"`
	AfterJSON  json.RawMessage `json:"after,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type AuditFilter struct {
	TenantID string
	Action   string
	AfterID  int64
	Limit    int
}
