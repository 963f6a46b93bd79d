package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/formgate/formgate/internal/adapters/events"
	"github.com/formgate/formgate/internal/adapters/httpapi"
	sqliteadapter "github.com/formgate/formgate/internal/adapters/sqlite"
	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/adapters/sqlite/tenantdb"
	"github.com/formgate/formgate/internal/core/ports"
	"github.com/formgate/formgate/internal/core/usecase"
	"github.com/formgate/formgate/migrations"
)

const (
	sharedDBFile       = "shared.sqlite"
	tenantOpenTimeout  = 10 * time.Second
	outboxPollInterval = 2 * time.Second
	outboxBatchSize    = 100
)

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewServer wires the registry, validation engine, tenant storage router,
// and outbox into an http.Server. The returned closer shuts them down in
// order: dispatcher first, then every tenant handle, then the shared store.
func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := gormsqlite.Open(filepath.Join(cfg.DataDir, sharedDBFile))
	if err != nil {
		return nil, nil, fmt.Errorf("open shared store: %w", err)
	}

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve shared sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.SharedUp(migrateCtx, sqlDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	schemaRepo := sqliteadapter.NewSchemaRepository(db)
	tenantRepo := sqliteadapter.NewTenantRepository(db)
	auditRepo := sqliteadapter.NewAuditRepository(db)
	outboxRepo := sqliteadapter.NewOutboxRepository(db)

	router := tenantdb.NewRouter(cfg.DataDir, tenantOpenTimeout)

	validator := usecase.NewValidator()
	registryService := usecase.NewRegistryService(schemaRepo, tenantRepo, auditRepo, outboxRepo)
	registrationService := usecase.NewRegistrationService(schemaRepo, router, validator, outboxRepo)
	auditService := usecase.NewAuditService(auditRepo)

	var publisher ports.EventPublisher = events.NewLogPublisher()
	if cfg.WebhookURL != "" {
		publisher = events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, 0)
	}
	dispatcher := usecase.NewOutboxDispatcher(outboxRepo, publisher, outboxPollInterval, outboxBatchSize)
	dispatcher.Start(context.Background())

	handler := httpapi.NewHandler(registryService, registrationService, auditService)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcher, router, db}}, nil
}
