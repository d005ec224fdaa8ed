package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SlotRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

func (r *SlotRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS credential_slots (
 slot_key TEXT PRIMARY KEY,
 value TEXT NOT NULL,
 updated_at TIMESTAMP NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM credential_slots WHERE slot_key = ? LIMIT 1;`
	var v string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO credential_slots (slot_key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (slot_key) DO UPDATE SET
 value = excluded.value,
 updated_at = excluded.updated_at;`
	_, err := r.db.ExecContext(ctx, q, key, value, r.now().UTC())
	return err
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM credential_slots WHERE slot_key = ?;`
	_, err := r.db.ExecContext(ctx, q, key)
	return err
}
