package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisGuardPrefix = "leadflow:enrichment:active:"

// RedisGuard is the distributed ActiveGuard for multi-node deployments.
// Claims are SET NX with a TTL so a crashed worker releases its lead when
// the key expires.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard backed by the given Redis client.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, leadID string) (bool, error) {
	acquired, err := g.client.SetNX(ctx, redisGuardPrefix+leadID, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire enrichment claim for lead %s: %w", leadID, err)
	}

	return acquired, nil
}

func (g *RedisGuard) Release(ctx context.Context, leadID string) error {
	err := g.client.Del(ctx, redisGuardPrefix+leadID).Err()
	if err != nil {
		return fmt.Errorf("failed to release enrichment claim for lead %s: %w", leadID, err)
	}

	return nil
}
