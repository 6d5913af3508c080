// Package cache is a thin JSON cache over Redis. Every call is a no-op (or a
// miss) until Connect succeeds, so callers never branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shashiranjanraj/kisanmart/config"
)

var RDB *redis.Client

// Connect initialises the Redis client and verifies the connection with a ping.
// Returns an error so the caller can react (log warning, fall back, or abort).
func Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       config.Int("REDIS_DB", 0),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RDB = nil
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Available reports whether a Redis connection is configured.
func Available() bool { return RDB != nil }

// Ping checks the Redis connection.
func Ping(ctx context.Context) error {
	if RDB == nil {
		return fmt.Errorf("cache: not connected")
	}
	return RDB.Ping(ctx).Err()
}

func Close() error {
	if RDB == nil {
		return nil
	}
	return RDB.Close()
}

// Get unmarshals the value under key into dest. Returns true on a hit.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}
	raw, err := RDB.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores value as JSON under key for ttl.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return RDB.Set(ctx, key, data, ttl).Err()
}

// Del removes one or more keys.
func Del(ctx context.Context, keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// Remember returns the cached value under key, or calls load to fill dest
// and caches the result. A failed cache write does not fail the call.
func Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() error) error {
	if Get(ctx, key, dest) {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	_ = Set(ctx, key, dest, ttl)
	return nil
}
