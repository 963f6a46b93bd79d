package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed shared/*.sql tenant/*.sql
var migrationFS embed.FS

// goose configuration is package-global, so serialize runs; tenant databases
// are provisioned concurrently at runtime.
var mu sync.Mutex

// SharedUp migrates the shared store (tenants, schemas, audit, outbox).
func SharedUp(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, "shared")
}

// TenantUp migrates one tenant's isolated database. Run on every handle open;
// goose makes it a no-op when the file is already current.
func TenantUp(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, "tenant")
}

func up(ctx context.Context, db *sql.DB, dir string) error {
	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run %s migrations: %w", dir, err)
	}
	return nil
}
