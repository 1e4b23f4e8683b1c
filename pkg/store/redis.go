package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a [RedisBackend].
type RedisConfig struct {
	// URL is a redis:// connection URL. When set, Addr, Password and DB
	// are ignored.
	URL      string
	Addr     string
	Password string
	DB       int
}

// RedisBackend stores values as plain string keys "namespace:key".
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection with PING.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		opts = &redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return &RedisBackend{client: client}, nil
}

func redisKey(ns, key string) string { return ns + ":" + key }

// Get implements [Backend].
func (b *RedisBackend) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, redisKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, b.wrap(err)
	}
	return data, true, nil
}

// Set implements [Backend].
func (b *RedisBackend) Set(ctx context.Context, ns, key string, data []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	return b.wrap(b.client.Set(ctx, redisKey(ns, key), data, 0).Err())
}

// Delete implements [Backend].
func (b *RedisBackend) Delete(ctx context.Context, ns, key string) error {
	return b.wrap(b.client.Del(ctx, redisKey(ns, key)).Err())
}

// Flush implements [Backend] by scanning for the namespace prefix and
// deleting matches in batches.
func (b *RedisBackend) Flush(ctx context.Context, ns string) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, ns+":*", 500).Result()
		if err != nil {
			return b.wrap(err)
		}
		if len(keys) > 0 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return b.wrap(err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close implements [Backend].
func (b *RedisBackend) Close() error { return b.client.Close() }

func (b *RedisBackend) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis: %w", ErrClosed)
	}
	return fmt.Errorf("redis: %w", err)
}

var _ Backend = (*RedisBackend)(nil)
