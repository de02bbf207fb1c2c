package service

import (
	"context"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/queue"
)

// publishActivity sends a post-commit event. The mutation has already been
// stored, so a failed publish is logged and otherwise ignored.
func publishActivity(ctx context.Context, publisher queue.Publisher, event queue.ActivityEvent) {
	if publisher == nil {
		return
	}
	if _, err := publisher.Publish(ctx, queue.StreamActivity, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("type", event.Type).Msg("publish activity event failed")
	}
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
