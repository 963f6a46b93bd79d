package ports

import (
	"context"

	"github.com/formgate/formgate/internal/core/domain"
)

// SchemaRepository is the shared (non-tenant-isolated) store of form schemas,
// keyed by raw tenant id.
type SchemaRepository interface {
	Create(ctx context.Context, schema domain.Schema) (domain.Schema, error)
	Update(ctx context.Context, schema domain.Schema) (domain.Schema, error)
	Delete(ctx context.Context, tenantID string) (bool, error)
	Get(ctx context.Context, tenantID string) (domain.Schema, error)
	List(ctx context.Context) ([]domain.Schema, error)
}

// TenantRepository stores tenant metadata records in the shared store.
// Create surfaces the store's duplicate-key failure as domain.ErrConflict.
type TenantRepository interface {
	Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	Get(ctx context.Context, tenantID string) (domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
}
