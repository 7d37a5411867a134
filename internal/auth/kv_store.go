package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound 表示键不存在或已过期。
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore 是身份服务依赖的短期状态存储：验证码、刷新令牌黑名单、登录限流计数。
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisStore 基于 Redis 实现 KeyValueStore。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 包装 Redis 客户端。
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

// incrWithTTL 自增计数器，首次创建时设置过期时间。
func incrWithTTL(ctx context.Context, store KeyValueStore, key string, ttl time.Duration) (int64, error) {
	count, err := store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = store.Expire(ctx, key, ttl)
	}
	return count, nil
}
