// Package db opens the credential slot table on the configured SQL driver.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/bioscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/bioscan/internal/infra/db/sqlite"
)

// SlotRepository is a credentials.SlotStore that can create its own table.
type SlotRepository interface {
	credentials.SlotStore
	Migrate(ctx context.Context) error
}

// Open connects with driver (sqlite, mysql, postgres), bootstraps the
// schema and returns the slot repository. The caller closes db.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, SlotRepository, error) {
	var (
		db   *sql.DB
		repo SlotRepository
		err  error
	)
	switch driver {
	case "sqlite", "":
		if db, err = sqlite.Connect(ctx, dsn); err == nil {
			repo = sqlite.NewSlotRepository(db)
		}
	case "mysql":
		if db, err = mysql.Connect(ctx, dsn); err == nil {
			repo = mysql.NewSlotRepository(db)
		}
	case "postgres":
		if db, err = postgres.Connect(ctx, dsn); err == nil {
			repo = postgres.NewSlotRepository(db)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return db, repo, nil
}
