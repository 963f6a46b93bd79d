package tenantdb

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
	"github.com/formgate/formgate/internal/metrics"
	"github.com/formgate/formgate/migrations"
)

const defaultOpenTimeout = 10 * time.Second

// Router maps tenant ids to isolated sqlite databases, one file per
// normalized tenant key. Handles are opened lazily, migrated on first open,
// and cached for the process lifetime. A singleflight group guarantees at
// most one open attempt in flight per key; concurrent resolvers for the same
// tenant share its outcome. Failed opens are never cached, so the next
// Resolve retries.
//
// Distinct raw ids with equal normalized forms ("Project-A", "projecta")
// intentionally share one database. Known collision hazard, accepted for the
// simplicity of filesystem-safe namespace names.
type Router struct {
	dir         string
	openTimeout time.Duration

	mu      sync.RWMutex
	handles map[string]*handle
	closed  bool

	group singleflight.Group
}

type handle struct {
	key   string
	db    *gormsqlite.DB
	users *UserStore
}

func NewRouter(dir string, openTimeout time.Duration) *Router {
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	return &Router{
		dir:         dir,
		openTimeout: openTimeout,
		handles:     make(map[string]*handle),
	}
}

var _ ports.TenantRouter = (*Router)(nil)

// Resolve returns the user store of the tenant's isolated namespace, opening
// and caching the underlying handle on first use.
func (r *Router) Resolve(ctx context.Context, tenantID string) (ports.UserStore, error) {
	key := domain.NormalizeTenantID(tenantID)
	if key == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTenantID, tenantID)
	}

	r.mu.RLock()
	h, ok := r.handles[key]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("%w: router is shut down", domain.ErrStorageUnavailable)
	}
	if ok {
		return h.users, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Recheck under the gate; a concurrent caller may have just won.
		r.mu.RLock()
		h, ok := r.handles[key]
		r.mu.RUnlock()
		if ok {
			return h, nil
		}

		opened, err := r.open(key)
		if err != nil {
			metrics.HandleOpenFailures.Inc()
			return nil, err
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = opened.db.Close()
			return nil, fmt.Errorf("%w: router is shut down", domain.ErrStorageUnavailable)
		}
		r.handles[key] = opened
		open := len(r.handles)
		r.mu.Unlock()

		metrics.TenantHandlesOpen.Set(float64(open))
		log.Printf("opened storage handle for tenant key %s", key)
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*handle).users, nil
}

// open creates or reopens the tenant's database file and brings its schema
// up to date. The migration wait is bounded by openTimeout and deliberately
// detached from the resolving request's context: cancelling one request must
// not poison the shared open for the others waiting on the same key.
func (r *Router) open(key string) (*handle, error) {
	file := filepath.Join(r.dir, "tenant_"+key+".sqlite")

	db, err := gormsqlite.Open(file)
	if err != nil {
		return nil, fmt.Errorf("%w: open tenant namespace %s: %v", domain.ErrStorageUnavailable, key, err)
	}

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: tenant namespace %s: %v", domain.ErrStorageUnavailable, key, err)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), r.openTimeout)
	defer cancel()
	if err := migrations.TenantUp(migrateCtx, sqlDB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate tenant namespace %s: %v", domain.ErrStorageUnavailable, key, err)
	}

	return &handle{key: key, db: db, users: NewUserStore(db)}, nil
}

// Close shuts every cached handle. Closes proceed independently: one
// tenant's failure is logged and does not block the rest.
func (r *Router) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*handle)
	r.closed = true
	r.mu.Unlock()

	for key, h := range handles {
		if err := h.db.Close(); err != nil {
			log.Printf("close tenant handle %s: %v", key, err)
		}
	}
	metrics.TenantHandlesOpen.Set(0)
	return nil
}
