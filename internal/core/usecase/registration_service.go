package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
	"github.com/formgate/formgate/internal/metrics"
)

// RegistrationService is the server-side, authoritative path of a submission:
// fetch the tenant's schema, validate, route to the tenant's isolated store,
// persist. Any client-side validation is advisory only; everything is
// re-checked here with the same engine.
type RegistrationService struct {
	schemas   ports.SchemaRepository
	router    ports.TenantRouter
	validator *Validator
	outbox    ports.OutboxRepository
}

func NewRegistrationService(schemas ports.SchemaRepository, router ports.TenantRouter, validator *Validator, outbox ports.OutboxRepository) *RegistrationService {
	return &RegistrationService{schemas: schemas, router: router, validator: validator, outbox: outbox}
}

// Register validates data against the tenant's schema and persists the
// accepted values. Returns domain.ErrNotFound when the tenant has no schema
// and *domain.ValidationError when the submission fails validation.
func (s *RegistrationService) Register(ctx context.Context, tenantID string, data map[string]domain.FieldValue) (domain.RegisteredUser, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.RegisteredUser{}, err
	}

	schema, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return domain.RegisteredUser{}, err
	}

	result := s.validator.Validate(schema.Fields, data)
	if !result.Valid {
		metrics.ValidationFailures.WithLabelValues(tenantID).Inc()
		return domain.RegisteredUser{}, &domain.ValidationError{Fields: result.Errors}
	}

	store, err := s.router.Resolve(ctx, tenantID)
	if err != nil {
		return domain.RegisteredUser{}, err
	}

	created, err := store.Insert(ctx, domain.RegisteredUser{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Fields:   result.Fields,
	})
	if err != nil {
		return domain.RegisteredUser{}, err
	}

	metrics.RegistrationsTotal.WithLabelValues(tenantID).Inc()
	enqueueEvent(ctx, s.outbox, domain.TopicRegistrations, "registration.created", tenantID, map[string]any{
		"user_id": created.ID,
	})
	return created, nil
}

func (s *RegistrationService) ListUsers(ctx context.Context, tenantID string, page, pageSize int) ([]domain.RegisteredUser, int64, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, 0, err
	}
	store, err := s.router.Resolve(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	return store.List(ctx, page, pageSize)
}

func (s *RegistrationService) GetUser(ctx context.Context, tenantID, id string) (domain.RegisteredUser, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.RegisteredUser{}, err
	}
	store, err := s.router.Resolve(ctx, tenantID)
	if err != nil {
		return domain.RegisteredUser{}, err
	}
	return store.GetByID(ctx, id)
}
