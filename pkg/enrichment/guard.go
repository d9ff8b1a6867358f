package enrichment

import (
	"context"
	"sync"
	"time"
)

// ActiveGuard is a fast-path advisory lock over the per-lead concurrency
// invariant. The database unique index remains the source of truth; the
// guard exists to reject duplicate triggers before they reach storage and
// to fence concurrent workers in multi-node deployments.
type ActiveGuard interface {
	// Acquire claims the lead. It returns false when another enrichment
	// already holds the claim.
	Acquire(ctx context.Context, leadID string) (bool, error)

	// Release frees the lead after the enrichment reaches a terminal
	// status. Releasing an unclaimed lead is a no-op.
	Release(ctx context.Context, leadID string) error
}

// MemoryGuard is the in-process ActiveGuard for single-node deployments
// and tests.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration
}

// NewMemoryGuard creates a guard whose claims expire after ttl, so a
// crashed worker cannot block a lead forever.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		claims: make(map[string]time.Time),
		ttl:    ttl,
	}
}

func (g *MemoryGuard) Acquire(ctx context.Context, leadID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expires, held := g.claims[leadID]; held && time.Now().Before(expires) {
		return false, nil
	}

	g.claims[leadID] = time.Now().Add(g.ttl)

	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, leadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.claims, leadID)

	return nil
}
