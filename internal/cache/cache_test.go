package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "weth", 3400, 30*time.Second)

	if v, ok := c.Get(ctx, "weth"); !ok || v != 3400 {
		t.Fatalf("Get = (%d, %v), want (3400, true)", v, ok)
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get(ctx, "weth"); ok {
		t.Error("expected expired entry to miss")
	}

	c.evictExpired()
	if c.Len() != 0 {
		t.Errorf("Len = %d after eviction, want 0", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := New[string, string](time.Minute)
	defer c.Close()

	c.Set(ctx, "k", "v", time.Hour)
	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected deleted entry to miss")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[int, int](time.Millisecond)
	c.Close()
	c.Close()
}
