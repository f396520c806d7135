package otp

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CodeStore holds pending verification payloads under a TTL. Get returns
// (nil, nil) when no payload exists for the key.
type CodeStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RedisStore is the production CodeStore. Redis expiry is the only
// cleanup mechanism; nothing reaps codes actively.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "otp:",
	}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
