package spam

import (
	"context"
	"fmt"
	"time"

	"murmur/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RateCounter is the one contract the pipeline needs from the rate-limit
// store: atomically increment a TTL-expiring bucket and return the new count.
type RateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateCounter counts submissions per key in Redis. INCR is atomic under
// concurrent callers; the expiry is set when the bucket is first created so
// the window slides per key.
type RedisRateCounter struct {
	client *redis.Client
}

// NewRedisRateCounter wraps a Redis client as a RateCounter.
func NewRedisRateCounter(client *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{client: client}
}

// Increment bumps the bucket for key and returns the post-increment count.
func (r *RedisRateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	cnt, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("incr").Inc()
		return 0, err
	}
	if cnt == 1 {
		r.client.Expire(ctx, key, window)
	}
	return cnt, nil
}

// rateLimitKey buckets a source identifier into the current minute.
func rateLimitKey(source string, now time.Time) string {
	return fmt.Sprintf("rl:comment:%s:%d", source, now.Unix()/60)
}
