package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionCookieMaxAge lifetime of the browser session cookie and, by
// default, of the credential slot behind it.
const SessionCookieMaxAge = 30 * 24 * time.Hour

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		RateLimit       float64       `yaml:"rateLimit"`
		RateBurst       int           `yaml:"rateBurst"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		SecureCookies   bool          `yaml:"secureCookies"`
	} `yaml:"server"`

	Gemini struct {
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"baseURL"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gemini"`

	Analysis struct {
		MaxUploadBytes int64         `yaml:"maxUploadBytes"`
		Timeout        time.Duration `yaml:"timeout"`
		SessionTTL     time.Duration `yaml:"sessionTTL"`
	} `yaml:"analysis"`

	Credentials struct {
		// Backend: memory, file, sql or redis
		Backend string        `yaml:"backend"`
		File    string        `yaml:"file"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"credentials"`

	Database struct {
		// Driver: sqlite, mysql or postgres
		Driver   string `yaml:"driver"`
		Path     string `yaml:"path"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Telemetry struct {
		Enabled      bool          `yaml:"enabled"`
		OTLPEndpoint string        `yaml:"otlpEndpoint"`
		Insecure     bool          `yaml:"insecure"`
		SampleRate   float64       `yaml:"sampleRate"`
		BatchTimeout time.Duration `yaml:"batchTimeout"`
	} `yaml:"telemetry"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load baca file config.yaml. File yang tidak ada tidak dianggap error,
// default + env tetap dipakai.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default config tanpa file, dipakai CLI dan test.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 5
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 10
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 2 * time.Minute
	}
	if c.Analysis.MaxUploadBytes == 0 {
		c.Analysis.MaxUploadBytes = 20 << 20
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 3 * time.Minute
	}
	if c.Analysis.SessionTTL == 0 {
		c.Analysis.SessionTTL = time.Hour
	}
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = "memory"
	}
	// same lifetime as the browser session cookie
	if c.Credentials.TTL == 0 {
		c.Credentials.TTL = SessionCookieMaxAge
	}
	if c.Credentials.File == "" {
		c.Credentials.File = DefaultCredentialFile()
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "bioscan.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "bioscan:"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = "localhost:4317"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1
	}
	if c.Telemetry.BatchTimeout == 0 {
		c.Telemetry.BatchTimeout = 5 * time.Second
	}
}

func (c *Config) applyEnv() {
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str(&c.Gemini.Model, "GEMINI_MODEL")
	str(&c.Gemini.BaseURL, "BIOSCAN_GEMINI_BASE_URL")
	str(&c.Credentials.Backend, "BIOSCAN_CREDENTIALS_BACKEND")
	str(&c.Credentials.File, "BIOSCAN_CREDENTIALS_FILE")
	str(&c.Database.Driver, "BIOSCAN_DB_DRIVER")
	str(&c.Database.Path, "BIOSCAN_DB_PATH")
	str(&c.Database.Host, "BIOSCAN_DB_HOST")
	str(&c.Database.User, "BIOSCAN_DB_USER")
	str(&c.Database.Password, "BIOSCAN_DB_PASSWORD")
	str(&c.Database.Name, "BIOSCAN_DB_NAME")
	str(&c.Redis.Addr, "BIOSCAN_REDIS_ADDR")
	str(&c.Redis.Password, "BIOSCAN_REDIS_PASSWORD")
	str(&c.Minio.Endpoint, "BIOSCAN_MINIO_ENDPOINT")
	str(&c.Minio.AccessKey, "BIOSCAN_MINIO_ACCESS_KEY")
	str(&c.Minio.SecretKey, "BIOSCAN_MINIO_SECRET_KEY")
	str(&c.Log.Level, "BIOSCAN_LOG_LEVEL")
	// setting a collector endpoint turns tracing on
	if v := os.Getenv("BIOSCAN_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("BIOSCAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BIOSCAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
}

// Validate cek nilai yang tidak bisa dikoreksi dengan default.
func (c *Config) Validate() error {
	switch c.Credentials.Backend {
	case "memory", "file", "sql", "redis":
	default:
		return fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend)
	}
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sampleRate %v outside [0,1]", c.Telemetry.SampleRate)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// DefaultCredentialFile ~/.config/bioscan/credentials.yaml
func DefaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "bioscan", "credentials.yaml")
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DSN sesuai driver yang dipilih.
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return c.PostgresDSN()
	default:
		return c.Database.Path
	}
}
