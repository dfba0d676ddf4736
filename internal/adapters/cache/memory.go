package cache

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache кэш в памяти процесса, используется когда Redis выключен.
// Блокировки действуют только внутри одного процесса
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := m.store.Get(key)
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return b, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = gocache.NoExpiration
	}
	m.store.Set(key, value, expiration)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Lock использует атомарный Add: он не перезаписывает живой ключ
func (m *MemoryCache) Lock(_ context.Context, key string, expiration time.Duration) (bool, error) {
	if expiration == 0 {
		expiration = gocache.NoExpiration
	}
	if err := m.store.Add(lockPrefix+key, struct{}{}, expiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) Unlock(_ context.Context, key string) error {
	m.store.Delete(lockPrefix + key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}

var (
	_ interfaces.CachePort = (*MemoryCache)(nil)
	_ interfaces.CachePort = (*RedisCache)(nil)
)
