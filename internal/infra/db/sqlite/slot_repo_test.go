package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewSlotRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")

	v, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repo.Set(ctx, "k", "first"))
	require.NoError(t, repo.Set(ctx, "k", "second"))
	v, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credential_slots`).Scan(&rows))
	assert.Equal(t, 1, rows)

	require.NoError(t, repo.Delete(ctx, "k"))
	require.NoError(t, repo.Delete(ctx, "k"))
	v, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}
