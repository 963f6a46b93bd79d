package ports

import (
	"context"

	"github.com/formgate/formgate/internal/core/domain"
)

// UserStore exposes the record operations of one tenant's isolated namespace.
// Every query it issues is scoped to that namespace; no implementation may
// reach across tenants.
type UserStore interface {
	Insert(ctx context.Context, user domain.RegisteredUser) (domain.RegisteredUser, error)
	List(ctx context.Context, page, pageSize int) ([]domain.RegisteredUser, int64, error)
	GetByID(ctx context.Context, id string) (domain.RegisteredUser, error)
}

// TenantRouter resolves a raw tenant id to that tenant's UserStore, lazily
// provisioning and caching the underlying handle. Resolve is idempotent and
// safe for concurrent use; a failed open is not cached, so a later call
// retries.
type TenantRouter interface {
	Resolve(ctx context.Context, tenantID string) (UserStore, error)
}
