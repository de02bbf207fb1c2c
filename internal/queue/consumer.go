package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"socialmedia_api/internal/logging"
)

// Message is a parsed entry read from a Redis stream.
type Message struct {
	ID    string
	Event ActivityEvent
}

type Consumer interface {
	// EnsureGroup creates the consumer group (and stream) if missing.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read returns new messages for this consumer, blocking up to block.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns messages delivered to this consumer but never acked.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	Ack(ctx context.Context, stream, group string, messageIDs ...string) error

	Pending(ctx context.Context, stream, group string) (int64, error)
}

type RedisConsumer struct {
	client *redis.Client
}

func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup starts the group at "0" so events published before the first
// worker boot are still delivered.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	log := logging.Component("consumer")

	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			log.Debug().Str("stream", stream).Str("group", group).Msg("consumer group exists")
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}

	log.Info().Str("stream", stream).Str("group", group).Msg("consumer group created")
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return parseStreams(streams), nil
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	// "0" reads this consumer's pending entries list instead of new messages.
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}

	return parseStreams(streams), nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}

// parseStreams returns malformed entries with a zero Event so the worker still acks them.
func parseStreams(streams []redis.XStream) []Message {
	var messages []Message
	for _, s := range streams {
		for _, msg := range s.Messages {
			event, err := ParseActivityEvent(msg.Values)
			if err != nil {
				logging.Component("consumer").Warn().Err(err).Str("msg_id", msg.ID).Msg("skipping malformed event")
				messages = append(messages, Message{ID: msg.ID})
				continue
			}
			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}
	return messages
}
