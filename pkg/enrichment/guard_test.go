package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_AcquireRelease(t *testing.T) {
	guard := NewMemoryGuard(time.Minute)
	ctx := context.Background()

	acquired, err := guard.Acquire(ctx, "lead-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = guard.Acquire(ctx, "lead-1")
	require.NoError(t, err)
	assert.False(t, acquired)

	// Other leads are independent.
	acquired, err = guard.Acquire(ctx, "lead-2")
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, guard.Release(ctx, "lead-1"))

	acquired, err = guard.Acquire(ctx, "lead-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryGuard_ClaimExpires(t *testing.T) {
	guard := NewMemoryGuard(10 * time.Millisecond)
	ctx := context.Background()

	acquired, err := guard.Acquire(ctx, "lead-1")
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	acquired, err = guard.Acquire(ctx, "lead-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryGuard_ReleaseUnclaimedIsNoop(t *testing.T) {
	guard := NewMemoryGuard(time.Minute)

	assert.NoError(t, guard.Release(context.Background(), "lead-unknown"))
}
