package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelvote/internal/data/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReviewCache is a cache-aside layer for hydrated reviews. A nil client
// turns every call into a no-op.
type ReviewCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewReviewCache connects to redisURL. An empty URL or a failed ping
// disables caching rather than failing startup.
func NewReviewCache(ctx context.Context, redisURL string, ttl time.Duration, log *zap.Logger) *ReviewCache {
	log = log.With(zap.String("component", "review_cache"))
	c := &ReviewCache{ttl: ttl, log: log}

	if redisURL == "" {
		log.Info("Redis not configured, review cache disabled")
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("Invalid redis URL, review cache disabled", zap.Error(err))
		return c
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis ping failed, review cache disabled", zap.Error(err))
		_ = rdb.Close()
		return c
	}

	log.Info("Redis connected, review cache enabled", zap.Duration("ttl", ttl))
	c.rdb = rdb
	return c
}

// NewReviewCacheWithClient wraps an existing client.
func NewReviewCacheWithClient(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *ReviewCache {
	return &ReviewCache{rdb: rdb, ttl: ttl, log: log.With(zap.String("component", "review_cache"))}
}

func reviewKey(id int64) string {
	return fmt.Sprintf("reelvote:review:%d", id)
}

// Get returns nil, nil on a miss.
func (c *ReviewCache) Get(ctx context.Context, id int64) (*entity.ReviewDetail, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}

	raw, err := c.rdb.Get(ctx, reviewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review %d from cache: %w", id, err)
	}

	var detail entity.ReviewDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode cached review %d: %w", id, err)
	}
	return &detail, nil
}

func (c *ReviewCache) Set(ctx context.Context, detail *entity.ReviewDetail) error {
	if c == nil || c.rdb == nil || detail == nil {
		return nil
	}

	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode review %d for cache: %w", detail.ID, err)
	}
	return c.rdb.Set(ctx, reviewKey(detail.ID), raw, c.ttl).Err()
}

func (c *ReviewCache) Invalidate(ctx context.Context, id int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, reviewKey(id)).Err()
}

// Ping reports cache health. A disabled cache is healthy.
func (c *ReviewCache) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *ReviewCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *ReviewCache) Enabled() bool {
	return c != nil && c.rdb != nil
}
