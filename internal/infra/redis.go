package infra

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// ErrLockTaken is returned by WithLock when another process holds the key.
var ErrLockTaken = errors.New("lock is held by another process")

// WithLock runs fn while holding a Redis lock on key. A nil client runs fn
// unlocked, so tools keep working against a database without Redis.
func WithLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, fn func(context.Context) error) error {
	if rdb == nil {
		return fn(ctx)
	}
	lock, err := redislock.New(rdb).Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLockTaken
	}
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release(context.Background()) }()
	return fn(ctx)
}
