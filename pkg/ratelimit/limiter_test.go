package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(1, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tb.Wait(context.Background()), "request %d within burst", i+1)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "burst must not block")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, tb.Wait(ctx), "burst exhausted")
}

func TestTokenBucketWaitPaces(t *testing.T) {
	tb := NewTokenBucket(50, 1)

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, tb.Wait(context.Background()))
	}
	// first token is immediate, the next three wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1.0/3600, 1)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, tb.Wait(ctx))
}

func TestForRate(t *testing.T) {
	assert.IsType(t, Unlimited{}, ForRate(0, 10))
	assert.IsType(t, &TokenBucket{}, ForRate(5, 1))

	u := Unlimited{}
	for i := 0; i < 1000; i++ {
		require.NoError(t, u.Wait(context.Background()))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, u.Wait(ctx), context.Canceled)
}

func TestNewTokenBucketClampsBurst(t *testing.T) {
	tb := NewTokenBucket(10, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, tb.Wait(ctx))
}
