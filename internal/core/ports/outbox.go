package ports

import (
	"context"

	"github.com/formgate/formgate/internal/core/domain"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, event domain.OutboxEvent) error
	FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt string, lastError string) error
	MarkDead(ctx context.Context, id int64, attempts int, lastError string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event domain.EventEnvelope) error
}
