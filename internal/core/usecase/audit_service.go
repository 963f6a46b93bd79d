package usecase

import (
	"context"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
)

// AuditService reads the admin audit trail. Appends happen inside the
// registry service as part of each admin mutation.
type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}
