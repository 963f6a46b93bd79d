package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/core/domain"
)

type tenantModel struct {
	TenantID    string    `gorm:"column:tenant_id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (tenantModel) TableName() string {
	return "tenants"
}

type TenantRepository struct {
	db *gormsqlite.DB
}

func NewTenantRepository(db *gormsqlite.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create relies on the primary-key constraint for uniqueness; a duplicate key
// surfaces as domain.ErrConflict.
func (r *TenantRepository) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	model := tenantModel{
		TenantID:    tenant.TenantID,
		Name:        tenant.Name,
		Description: tenant.Description,
		IsActive:    tenant.IsActive,
		CreatedAt:   time.Now().UTC(),
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return fmt.Errorf("create tenant: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Tenant{}, err
	}
	return toTenantDomain(model), nil
}

func (r *TenantRepository) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	var model tenantModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ?", tenantID).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Tenant{}, domain.ErrNotFound
		}
		return domain.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return toTenantDomain(model), nil
}

func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	var models []tenantModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Order("tenant_id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	tenants := make([]domain.Tenant, 0, len(models))
	for _, model := range models {
		tenants = append(tenants, toTenantDomain(model))
	}
	return tenants, nil
}

func toTenantDomain(model tenantModel) domain.Tenant {
	return domain.Tenant{
		TenantID:    model.TenantID,
		Name:        model.Name,
		Description: model.Description,
		IsActive:    model.IsActive,
		CreatedAt:   model.CreatedAt,
	}
}
