package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// Cache mirrors job status snapshots and backs HTTP rate limiting.
// Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetJobStatus(ctx context.Context, view models.JobStatusView, ttl time.Duration) error
	GetJobStatus(ctx context.Context, jobID string) (models.JobStatusView, bool, error)
	DeleteJobStatus(ctx context.Context, jobID string) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
	Close() error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SetJobStatus(ctx context.Context, view models.JobStatusView, ttl time.Duration) error {
	b, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encoding job status: %w", err)
	}
	return c.client.Set(ctx, JobStatusKey(view.JobID), b, ttl).Err()
}

func (c *RedisCache) GetJobStatus(ctx context.Context, jobID string) (models.JobStatusView, bool, error) {
	b, err := c.client.Get(ctx, JobStatusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.JobStatusView{}, false, nil
	}
	if err != nil {
		return models.JobStatusView{}, false, err
	}

	var view models.JobStatusView
	if err := json.Unmarshal(b, &view); err != nil {
		return models.JobStatusView{}, false, fmt.Errorf("decoding job status: %w", err)
	}
	return view, true, nil
}

func (c *RedisCache) DeleteJobStatus(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, JobStatusKey(jobID)).Err()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Nop is the Cache used when no Redis is configured: nothing is mirrored and
// every rate-limit counter reads 1.
type Nop struct{}

func (Nop) Ping(context.Context) error { return nil }
func (Nop) Close() error               { return nil }

func (Nop) SetJobStatus(context.Context, models.JobStatusView, time.Duration) error { return nil }

func (Nop) GetJobStatus(context.Context, string) (models.JobStatusView, bool, error) {
	return models.JobStatusView{}, false, nil
}

func (Nop) DeleteJobStatus(context.Context, string) error { return nil }

func (Nop) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) { return 1, nil }

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = Nop{}
)
