package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/application"
)

// Factory builds the controller for a new browser session.
type Factory func(ctx context.Context, id string) (*Controller, error)

// Registry maps browser-session IDs to controllers.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	factory  Factory
	ttl      time.Duration
	clock    application.Clock
	log      *zap.Logger
}

func NewRegistry(factory Factory, ttl time.Duration, clock application.Clock, log *zap.Logger) *Registry {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Controller),
		factory:  factory,
		ttl:      ttl,
		clock:    clock,
		log:      log,
	}
}

// Get returns the controller for id, creating one when id is unknown.
// IDs that are not UUIDs are replaced, so the returned id may differ.
// The factory runs without the registry lock held; when two requests race
// to create the same session the first one stored wins.
func (r *Registry) Get(ctx context.Context, id string) (*Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	c, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := r.factory(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	r.sessions[id] = c
	return c, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with an
// analysis in flight are kept.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.sessions {
		if c.Busy() || c.IdleSince().After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		n++
	}
	if n > 0 {
		r.log.Debug("sessions swept", zap.Int("removed", n), zap.Int("remaining", len(r.sessions)))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Wait blocks until every outstanding analysis has resolved.
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		all = append(all, c)
	}
	r.mu.Unlock()

	for _, c := range all {
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
