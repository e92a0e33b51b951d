package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window counter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// ThrottleRepository persists email dispatch attempts in Redis sorted sets.
type ThrottleRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewThrottleRepository constructs a repository using the provided Redis client and config.
func NewThrottleRepository(client *redis.Client, cfg SlidingWindowConfig) *ThrottleRepository {
	return &ThrottleRepository{client: client, cfg: cfg}
}

// RecordAttempt stores the provided timestamp within the window and applies TTL.
func (r *ThrottleRepository) RecordAttempt(ctx context.Context, key string, at time.Time) error {
	fullKey := r.key(key)
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, fullKey, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if r.cfg.TTL > 0 {
		if err := r.client.Expire(ctx, fullKey, r.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountAttempts returns how many attempts occurred within the window ending at reference time.
func (r *ThrottleRepository) CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	fullKey := r.key(key)
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	count, err := r.client.ZCount(ctx, fullKey, min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// TrimWindow removes attempts older than the provided window relative to reference time.
func (r *ThrottleRepository) TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	fullKey := r.key(key)
	threshold := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))

	if err := r.client.ZRemRangeByScore(ctx, fullKey, "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	return nil
}

func (r *ThrottleRepository) key(key string) string {
	if r.cfg.KeyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, key)
}

var _ port.ThrottleStore = (*ThrottleRepository)(nil)
