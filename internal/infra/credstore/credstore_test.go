package credstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bioscan/internal/config"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/middleware"
)

func roundTrip(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()
	slot := credentials.NewSlot(b.Slots, "test")
	require.NoError(t, slot.Set(ctx, "VALID_KEY"))
	v, err := slot.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "VALID_KEY", v)
	require.NoError(t, slot.Clear(ctx))
	v, err = slot.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestOpen_Memory(t *testing.T) {
	cfg := config.Default()
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "memory", b.Name)
	assert.Nil(t, b.Ready())
	assert.Empty(t, b.HealthChecks())
	roundTrip(t, b)
	assert.Zero(t, b.Prune())
}

func TestOpen_File(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Backend = "file"
	cfg.Credentials.File = filepath.Join(t.TempDir(), "credentials.yaml")
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	roundTrip(t, b)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Backend = "sql"
	cfg.Database.Path = filepath.Join(t.TempDir(), "bioscan.db")
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	require.NotNil(t, b.Ready())
	assert.NoError(t, b.Ready().Check(context.Background()))
	roundTrip(t, b)
}

func TestOpen_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Backend = "etcd"
	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestReadinessFollowsCredentialBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Backend = "sql"
	cfg.Database.Path = filepath.Join(t.TempDir(), "bioscan.db")
	b, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	checks := b.HealthChecks()
	checks["minio"] = middleware.CheckFunc(func(context.Context) error { return errors.New("unreachable") })
	require.Len(t, b.HealthChecks(), 1)

	ready := middleware.ReadinessHandler(b.Ready())
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code, "call %d", i)
	}

	rec := httptest.NewRecorder()
	middleware.HealthHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadiness_LocalBackendWithObjectStorage(t *testing.T) {
	b, err := Open(context.Background(), config.Default(), nil)
	require.NoError(t, err)
	checks := b.HealthChecks()
	checks["minio"] = middleware.CheckFunc(func(context.Context) error { return errors.New("unreachable") })
	assert.Nil(t, b.Ready())
}
