package domain

import (
	"encoding/json"
	"time"
)

const (
	TopicRegistrations = "registrations"
	TopicAdmin         = "admin"
)

// EventEnvelope is the wire shape handed to event publishers.
type EventEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	TenantID   string          `json:"tenant_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Outbox event lifecycle states.
const (
	OutboxPending    = "pending"
	OutboxDispatched = "dispatched"
	OutboxDead       = "dead"
)

// OutboxEvent is one pending delivery row in the shared store. Events are
// written alongside the change they describe and shipped asynchronously by
// the dispatcher.
type OutboxEvent struct {
	ID            int64
	EventID       string
	TenantID      string
	Topic         string
	PayloadJSON   json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}
