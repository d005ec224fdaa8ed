package credentials

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore in-process SlotStore; lost on restart. With a TTL, entries
// expire that long after their last Set and are dropped on access or Prune.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreTTL(0)
}

// NewMemoryStoreTTL ttl <= 0 keeps entries until deleted.
func NewMemoryStoreTTL(ttl time.Duration) *MemoryStore {
	return &MemoryStore{slots: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.slots[key]
	if !ok {
		return "", nil
	}
	if m.expired(e, m.now()) {
		delete(m.slots, key)
		return "", nil
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.slots[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (m *MemoryStore) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.slots {
		if m.expired(e, now) {
			delete(m.slots, k)
			n++
		}
	}
	return n
}

// Len number of stored entries, expired ones included until pruned.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
