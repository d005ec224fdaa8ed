package credentials

import "context"

// KeyName fixed slot name holding the Gemini API key.
const KeyName = "gemini_api_key"

// Store holds a single credential. Get returns "" when nothing is stored.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}

// SlotStore port for key/value persistence backends (file, sql, redis)
type SlotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
