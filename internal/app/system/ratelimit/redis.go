package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed window limiter shared by every instance that talks to
// the same Redis. Each window is one counter key that expires with it.
type Redis struct {
	client   redis.Cmdable
	prefix   string
	limit    int
	duration time.Duration
	now      func() time.Time
}

// NewRedis returns a limiter allowing limit events per duration per key.
// limit <= 0 disables limiting.
func NewRedis(client redis.Cmdable, prefix string, limit int, duration time.Duration) *Redis {
	return &Redis{
		client:   client,
		prefix:   prefix,
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

// windowKey names the counter for key in the window containing t.
func (r *Redis) windowKey(key string, t time.Time) string {
	bucket := t.UnixNano() / int64(r.duration)
	return r.prefix + ":" + key + ":" + strconv.FormatInt(bucket, 10)
}

// Allow increments the counter for key's current window and reports whether
// it is still within the limit.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.limit <= 0 || r.duration <= 0 {
		return true, nil
	}
	k := r.windowKey(key, r.now())

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(r.limit), nil
}
