// Package credstore picks the credential slot backend named in the config.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/config"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/infra/db"
	"github.com/bryanwahyu/bioscan/internal/infra/filestore"
	"github.com/bryanwahyu/bioscan/internal/infra/redisstore"
	"github.com/bryanwahyu/bioscan/internal/middleware"
)

// Backend is an opened slot store plus what the server needs around it.
type Backend struct {
	Name   string
	Slots  credentials.SlotStore
	ready  middleware.HealthChecker
	prune  func() int
	closer func() error
}

// Ready returns the check used by /readyz, nil for local backends.
func (b *Backend) Ready() middleware.HealthChecker { return b.ready }

// HealthChecks returns a fresh map for /health; callers may add their own
// dependencies to it.
func (b *Backend) HealthChecks() map[string]middleware.HealthChecker {
	checks := make(map[string]middleware.HealthChecker)
	if b.ready != nil {
		checks[b.Name] = b.ready
	}
	return checks
}

// Prune drops expired slots on backends that do not expire them on their
// own. Redis expires keys itself and sql/file slots are removed on logout.
func (b *Backend) Prune() int {
	if b.prune == nil {
		return 0
	}
	return b.prune()
}

// Run prunes every interval until ctx is done.
func (b *Backend) Run(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if b.prune == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := b.Prune(); n > 0 {
				log.Debug("credential slots pruned", zap.String("backend", b.Name), zap.Int("removed", n))
			}
		}
	}
}

func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

// Open connects the backend selected by cfg.Credentials.Backend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{Name: cfg.Credentials.Backend}

	switch cfg.Credentials.Backend {
	case "memory", "":
		b.Name = "memory"
		mem := credentials.NewMemoryStoreTTL(cfg.Credentials.TTL)
		b.Slots = mem
		b.prune = mem.Prune

	case "file":
		fs := filestore.New(cfg.Credentials.File)
		b.Slots = fs
		log.Info("credential file", zap.String("path", fs.Path()))

	case "sql":
		var (
			conn *sql.DB
			err  error
		)
		conn, b.Slots, err = db.Open(ctx, cfg.Database.Driver, cfg.DSN())
		if err != nil {
			return nil, err
		}
		b.ready = &middleware.DatabaseHealthChecker{DB: conn}
		b.closer = conn.Close
		log.Info("credential database connected", zap.String("driver", cfg.Database.Driver))

	case "redis":
		rs := redisstore.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, cfg.Credentials.TTL)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		b.Slots = rs
		b.ready = middleware.CheckFunc(rs.Ping)
		b.closer = rs.Close
		log.Info("credential redis connected", zap.String("addr", cfg.Redis.Addr))

	default:
		return nil, errors.New("unknown credentials backend " + cfg.Credentials.Backend)
	}
	return b, nil
}
