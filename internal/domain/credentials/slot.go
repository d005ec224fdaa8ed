package credentials

import (
	"context"
	"strings"
)

// Slot adapts a SlotStore to Store under "<namespace>:gemini_api_key".
type Slot struct {
	store SlotStore
	key   string
}

func NewSlot(store SlotStore, namespace string) *Slot {
	key := KeyName
	if namespace != "" {
		key = namespace + ":" + KeyName
	}
	return &Slot{store: store, key: key}
}

// Key returns the backend key used by this slot.
func (s *Slot) Key() string { return s.key }

func (s *Slot) Get(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, s.key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (s *Slot) Set(ctx context.Context, credential string) error {
	return s.store.Set(ctx, s.key, credential)
}

func (s *Slot) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}
