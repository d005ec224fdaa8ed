package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, int64(20<<20), cfg.Analysis.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.Credentials.Backend)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "bioscan:", cfg.Redis.Prefix)
	assert.Equal(t, SessionCookieMaxAge, cfg.Credentials.TTL)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
}

func TestLoad_TelemetryFromEnv(t *testing.T) {
	t.Setenv("BIOSCAN_OTLP_ENDPOINT", "otel-collector:4317")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.Telemetry.OTLPEndpoint)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telemetry:\n  sampleRate: 2\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  corsOrigins: ["https://bioscan.example"]
gemini:
  model: gemini-2.0-flash
  timeout: 45s
credentials:
  backend: sql
database:
  driver: postgres
  host: db
  port: 5432
  user: bio
  password: secret
  name: bioscan
`), 0o600))
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("BIOSCAN_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 45*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, []string{"https://bioscan.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "host=db port=5432 user=bio password=secret dbname=bioscan sslmode=disable", cfg.DSN())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("credentials:\n  backend: etcd\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "h"
	cfg.Database.Port = 3306
	cfg.Database.Name = "n"
	assert.Equal(t, "u:p@tcp(h:3306)/n?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())
}
