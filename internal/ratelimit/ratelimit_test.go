package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/ratelimit"
)

func TestNew_BurstIsTenthOfRate(t *testing.T) {
	l := ratelimit.New(60) // one per second, burst 6

	for i := 0; i < 6; i++ {
		assert.True(t, l.Allow(), "request %d within burst", i)
	}
	assert.False(t, l.Allow())
}

func TestNew_Unlimited(t *testing.T) {
	l := ratelimit.New(0)
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow())
	}
}

func TestWait_CancelledContext(t *testing.T) {
	l := ratelimit.NewWithBurst(0.001, 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}
