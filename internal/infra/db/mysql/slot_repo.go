package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SlotRepository stores credential slots in credential_slots.
type SlotRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

// Migrate bikin tabel kalau belum ada
func (r *SlotRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS credential_slots (
 slot_key VARCHAR(191) NOT NULL PRIMARY KEY,
 value TEXT NOT NULL,
 updated_at DATETIME NOT NULL
) DEFAULT CHARSET=utf8mb4;`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Get returns "" when the slot is empty.
func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM credential_slots WHERE slot_key=? LIMIT 1;`
	var v string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// Set insert/update slot
func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO credential_slots (slot_key, value, updated_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE value=VALUES(value), updated_at=VALUES(updated_at);`
	_, err := r.db.ExecContext(ctx, q, key, value, r.now().UTC())
	return err
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM credential_slots WHERE slot_key=?;`
	_, err := r.db.ExecContext(ctx, q, key)
	return err
}
