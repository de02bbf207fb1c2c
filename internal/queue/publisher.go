package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
)

// Publisher adds events to a stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, event ActivityEvent) (messageID string, err error)
}

// streamMaxLen caps the activity stream; XADD trims approximately.
const streamMaxLen = 100000

type RedisPublisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event ActivityEvent) (string, error) {
	log := logging.Component("publisher")
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		log.Error().Err(err).Str("stream", stream).Str("type", event.Type).Msg("publish failed")
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(event.Type, "ok").Inc()
	log.Debug().
		Str("stream", stream).
		Str("type", event.Type).
		Str("msg_id", messageID).
		Dur("duration", time.Since(startTime)).
		Msg("published")

	return messageID, nil
}

// NopPublisher drops events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, ActivityEvent) (string, error) {
	return "", nil
}
