package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const lockPrefix = "lock:"

// unlockScript удаляет ключ блокировки, только если он все еще принадлежит нам
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisCache(ctx context.Context, host string, port int, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient оборачивает готовый клиент
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, tokens: make(map[string]string)}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, interfaces.ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Lock распределенная блокировка через SET NX с TTL.
// Значение ключа - случайный токен владельца, по нему Unlock проверяет владение
func (r *RedisCache) Lock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockPrefix+key, token, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка при получении блокировки %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	r.mu.Lock()
	r.tokens[key] = token
	r.mu.Unlock()

	return true, nil
}

// Unlock снимает блокировку, если она была получена этим экземпляром
func (r *RedisCache) Unlock(ctx context.Context, key string) error {
	r.mu.Lock()
	token, ok := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := unlockScript.Run(ctx, r.client, []string{lockPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ошибка при снятии блокировки %s: %w", key, err)
	}

	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
