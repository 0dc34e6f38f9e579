package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterBurst(t *testing.T) {
	limiter := NewLocalLimiter(Policy{PerMinute: 6, Burst: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "acme")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i)
	}

	ok, err := limiter.Allow(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok, "burst exhausted")
}

func TestLocalLimiterIsolatesNamespaces(t *testing.T) {
	limiter := NewLocalLimiter(Policy{PerMinute: 6, Burst: 1})
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "zen")
	require.NoError(t, err)
	assert.True(t, ok, "other namespaces keep their own budget")
}

func TestLocalLimiterDefaultsEmptyPolicy(t *testing.T) {
	limiter := NewLocalLimiter(Policy{})

	ok, err := limiter.Allow(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, ok)
}
