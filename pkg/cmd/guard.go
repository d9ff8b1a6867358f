package cmd

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadflowhq/leadflow/pkg/enrichment"
)

// NewActiveGuard returns the distributed Redis guard when a Redis URL is
// configured and the single-process memory guard otherwise.
func NewActiveGuard(redisURL string, ttl time.Duration) enrichment.ActiveGuard {
	if ttl <= 0 {
		ttl = time.Minute
	}

	if redisURL == "" {
		return enrichment.NewMemoryGuard(ttl)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse Redis URL: %w", err))
	}

	return enrichment.NewRedisGuard(redis.NewClient(opts), ttl)
}
