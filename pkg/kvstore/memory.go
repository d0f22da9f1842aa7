package kvstore

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore implements Store using an in-memory cache. It backs the
// no-persistence mode and tests; contents vanish with the process.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, found := m.cache.Get(key); found {
		src := val.([]byte)
		out := make([]byte, len(src))
		copy(out, src)
		return out, true, nil
	}
	return nil, false, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
