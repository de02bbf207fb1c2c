package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"socialmedia_api/internal/logging"
)

// Client wraps the shared Redis client used by the activity stream and the
// unread-count cache.
type Client struct {
	*redis.Client
}

// NewClient creates a Redis client from a URL of the form
// redis://[:password@]host:port[/db].
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Client{Client: redis.NewClient(opts)}, nil
}

// Connect creates the client and pings it so startup fails fast when Redis is
// unreachable.
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	client, err := NewClient(redisURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, err
	}

	logging.Info().Str("addr", client.Options().Addr).Msg("connected to redis")
	return client, nil
}

// Ping verifies the connection to Redis.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
