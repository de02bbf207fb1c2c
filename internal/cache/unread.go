package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// UnreadCachePrefix is the key prefix for per-user unread notification counts
	UnreadCachePrefix = "notif:unread:"

	// UnreadGenPrefix is the key prefix for per-user invalidation generations
	UnreadGenPrefix = "notif:unread:gen:"

	// UnreadCacheTTL bounds how long a count can outlive a missed invalidation
	UnreadCacheTTL = 10 * time.Minute

	// unreadGenTTL must stay far above any request latency so a generation
	// never resets while a reader still holds it.
	unreadGenTTL = 24 * time.Hour
)

// UnreadSnapshot is the result of a cache lookup. On a miss, Generation is
// the value Set must be given to repopulate the entry.
type UnreadSnapshot struct {
	Count      int
	Found      bool
	Generation int64
}

// UnreadCounter caches each user's unread notification count. The database
// is authoritative: writers invalidate, readers repopulate on miss. Every
// invalidation bumps the user's generation, and Set only stores a count
// read under the current generation, so a count read before a concurrent
// mark-read is never written back.
type UnreadCounter interface {
	Get(ctx context.Context, userID int64) (UnreadSnapshot, error)
	// Set stores count when generation is still current and reports
	// whether it did.
	Set(ctx context.Context, userID int64, count int, generation int64) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

type RedisUnreadCounter struct {
	client *redis.Client
}

func NewUnreadCounter(client *redis.Client) UnreadCounter {
	return &RedisUnreadCounter{client: client}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("%s%d", UnreadCachePrefix, userID)
}

func unreadGenKey(userID int64) string {
	return fmt.Sprintf("%s%d", UnreadGenPrefix, userID)
}

// parseGen reads a generation reply. A missing or corrupt key is generation 0.
func parseGen(cmd *redis.StringCmd) (int64, error) {
	gen, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisUnreadCounter) Get(ctx context.Context, userID int64) (UnreadSnapshot, error) {
	pipe := c.client.Pipeline()
	countCmd := pipe.Get(ctx, unreadKey(userID))
	genCmd := pipe.Get(ctx, unreadGenKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return UnreadSnapshot{}, fmt.Errorf("get unread count: %w", err)
	}

	gen, err := parseGen(genCmd)
	if err != nil {
		return UnreadSnapshot{}, fmt.Errorf("get unread generation: %w", err)
	}

	n, err := countCmd.Int()
	if err != nil {
		// Missing or corrupt entry; a miss the caller may overwrite.
		return UnreadSnapshot{Generation: gen}, nil
	}
	return UnreadSnapshot{Count: n, Found: true, Generation: gen}, nil
}

func (c *RedisUnreadCounter) Set(ctx context.Context, userID int64, count int, generation int64) (bool, error) {
	genKey := unreadGenKey(userID)
	errStale := errors.New("stale unread generation")

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := parseGen(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != generation {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, unreadKey(userID), count, UnreadCacheTTL)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("set unread count: %w", err)
	}
}

func (c *RedisUnreadCounter) Invalidate(ctx context.Context, userID int64) error {
	genKey := unreadGenKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, unreadGenTTL)
		pipe.Del(ctx, unreadKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}
	return nil
}

// NopUnreadCounter always misses and never stores. Used when Redis is not configured.
type NopUnreadCounter struct{}

func (NopUnreadCounter) Get(context.Context, int64) (UnreadSnapshot, error) {
	return UnreadSnapshot{}, nil
}
func (NopUnreadCounter) Set(context.Context, int64, int, int64) (bool, error) { return false, nil }
func (NopUnreadCounter) Invalidate(context.Context, int64) error              { return nil }
