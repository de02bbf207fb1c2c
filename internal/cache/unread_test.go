package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	opts.DB = 1
	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisUnreadCounter(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	c := NewUnreadCounter(client)

	snap, err := c.Get(ctx, 1)
	if err != nil || snap.Found {
		t.Fatalf("Get on empty cache = %+v, %v; want miss", snap, err)
	}

	if stored, err := c.Set(ctx, 1, 5, snap.Generation); err != nil || !stored {
		t.Fatalf("Set() = %v, %v; want stored", stored, err)
	}
	snap, err = c.Get(ctx, 1)
	if err != nil || !snap.Found || snap.Count != 5 {
		t.Fatalf("Get() = %+v, %v; want count 5", snap, err)
	}

	ttl := client.TTL(ctx, unreadKey(1)).Val()
	if ttl <= 0 || ttl > UnreadCacheTTL {
		t.Errorf("TTL = %v, want within (0, %v]", ttl, UnreadCacheTTL)
	}

	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	after, _ := c.Get(ctx, 1)
	if after.Found {
		t.Error("count should be gone after Invalidate")
	}
	if after.Generation != snap.Generation+1 {
		t.Errorf("Generation = %d, want %d", after.Generation, snap.Generation+1)
	}
}

func TestRedisUnreadCounter_SetAfterInvalidateIsDropped(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	c := NewUnreadCounter(client)

	// A reader misses, then a writer invalidates before the reader stores.
	snap, _ := c.Get(ctx, 3)
	if err := c.Invalidate(ctx, 3); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	stored, err := c.Set(ctx, 3, 7, snap.Generation)

	if err != nil || stored {
		t.Fatalf("Set() with old generation = %v, %v; want dropped", stored, err)
	}
	if got, _ := c.Get(ctx, 3); got.Found {
		t.Errorf("stale count cached: %+v", got)
	}
}

func TestRedisUnreadCounter_CorruptValueIsMiss(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	client.Set(ctx, unreadKey(9), "not-a-number", 0)

	snap, err := NewUnreadCounter(client).Get(ctx, 9)
	if err != nil || snap.Found {
		t.Errorf("Get() = %+v, %v; want miss without error", snap, err)
	}
}

func TestNopUnreadCounter(t *testing.T) {
	var c UnreadCounter = NopUnreadCounter{}
	ctx := context.Background()

	if stored, err := c.Set(ctx, 1, 3, 0); err != nil || stored {
		t.Fatalf("Set() = %v, %v; want not stored", stored, err)
	}
	if snap, _ := c.Get(ctx, 1); snap.Found {
		t.Error("NopUnreadCounter should always miss")
	}
}
