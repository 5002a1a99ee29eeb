package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository enforces the per-student write limits with Redis.
// Callers treat errors as "limiter unavailable" and fall back to their own
// degraded checks, so this repository never fails closed.
type RateLimitRepository struct {
	client      *redis.Client
	hourlyCap   int
	minInterval time.Duration
}

// NewRateLimitRepository creates a rate limit repository with the generation
// cap per rolling hour and the minimum interval between state updates.
func NewRateLimitRepository(client *redis.Client, hourlyCap int, minInterval time.Duration) *RateLimitRepository {
	if hourlyCap <= 0 {
		hourlyCap = 5
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &RateLimitRepository{client: client, hourlyCap: hourlyCap, minInterval: minInterval}
}

// AllowGeneration consumes one slot from the student's rolling hourly
// generation quota and reports whether the request is within the cap.
func (r *RateLimitRepository) AllowGeneration(ctx context.Context, studentID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:generate:%s", studentID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("increment generation quota: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, time.Hour).Err(); err != nil {
			return false, fmt.Errorf("expire generation quota: %w", err)
		}
	}
	return count <= int64(r.hourlyCap), nil
}

// AllowStateUpdate enforces the minimum interval between state writes for one
// simulation. SET NX with the interval as TTL: the first writer in the window
// wins, later writers are rejected until the key expires.
func (r *RateLimitRepository) AllowStateUpdate(ctx context.Context, simulationID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:state:%s", simulationID)
	ok, err := r.client.SetNX(ctx, key, 1, r.minInterval).Result()
	if err != nil {
		return false, fmt.Errorf("acquire update slot: %w", err)
	}
	return ok, nil
}
