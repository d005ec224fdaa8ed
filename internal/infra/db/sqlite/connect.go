package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// Connect opens a file (or ":memory:") database. One connection only:
// sqlite serializes writers anyway and :memory: is per connection.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
