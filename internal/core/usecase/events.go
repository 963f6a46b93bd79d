package usecase

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
)

// enqueueEvent writes one envelope into the outbox. Delivery is best-effort
// relative to the triggering operation: an enqueue failure is logged and the
// operation still succeeds.
func enqueueEvent(ctx context.Context, repo ports.OutboxRepository, topic, eventType, tenantID string, payload any) {
	if repo == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("encode %s payload: %v", eventType, err)
		return
	}

	envelope := domain.EventEnvelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("encode %s envelope: %v", eventType, err)
		return
	}

	err = repo.Enqueue(ctx, domain.OutboxEvent{
		EventID:     envelope.EventID,
		TenantID:    tenantID,
		Topic:       topic,
		PayloadJSON: raw,
		Status:      domain.OutboxPending,
	})
	if err != nil {
		log.Printf("enqueue outbox event %s: %v", eventType, err)
	}
}
