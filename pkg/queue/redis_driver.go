package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisQueueKey = "kisanmart:queue:jobs"

// RedisDriver keeps jobs in a Redis list (LPUSH/BRPOP), so several
// processes can share one queue and pending jobs survive restarts.
type RedisDriver struct {
	rdb  *redis.Client
	key  string
	wait time.Duration
}

// NewRedisDriver creates a driver on the client used by pkg/cache.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, key: redisQueueKey, wait: 5 * time.Second}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks for up to five seconds; a timeout returns (nil, nil).
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, d.wait, d.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}
