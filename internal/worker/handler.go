package worker

import (
	"context"
	"fmt"
	"time"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/queue"
)

// UnreadInvalidator drops a cached unread count.
type UnreadInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// PushNotifier delivers device pushes. Implemented by service.PushService.
type PushNotifier interface {
	// NotifyActivity pushes "<actor> <verb>" to every device of recipientID.
	NotifyActivity(ctx context.Context, recipientID, actorID int64, verb string, data map[string]string) error
}

// Handler processes activity events from the queue.
type Handler struct {
	unread UnreadInvalidator
	push   PushNotifier // nil when push delivery is disabled
}

func NewHandler(unread UnreadInvalidator, push PushNotifier) *Handler {
	return &Handler{unread: unread, push: push}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ActivityEvent) error {
	log := logging.Component("worker")
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventNotificationCreated:
		err = h.handleNotificationCreated(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed, queue.EventPostLiked, queue.EventPostUnliked, queue.EventPostCommented:
		// Recorded for metrics only; the notification for a like arrives as
		// its own notification_created event, as does one for a comment.
	default:
		metrics.EventsProcessed.WithLabelValues("unknown", "error").Inc()
		return fmt.Errorf("unknown event type: %q", event.Type)
	}

	if err != nil {
		metrics.EventsProcessed.WithLabelValues(event.Type, "error").Inc()
		log.Error().Err(err).Str("type", event.Type).Dur("duration", time.Since(startTime)).Msg("handle event failed")
		return err
	}

	metrics.EventsProcessed.WithLabelValues(event.Type, "ok").Inc()
	log.Debug().Str("type", event.Type).Dur("duration", time.Since(startTime)).Msg("event handled")
	return nil
}

// handleNotificationCreated refreshes the recipient's badge and pushes to
// their devices. A push failure does not fail the event: the notification is
// already stored and visible in the list.
func (h *Handler) handleNotificationCreated(ctx context.Context, event queue.ActivityEvent) error {
	if event.RecipientID <= 0 {
		return fmt.Errorf("notification event %d has no recipient", event.NotificationID)
	}

	if err := h.unread.Invalidate(ctx, event.RecipientID); err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}

	if h.push == nil {
		return nil
	}

	data := map[string]string{
		"type":            "notification",
		"notification_id": fmt.Sprintf("%d", event.NotificationID),
		"target_type":     event.TargetType,
		"target_id":       fmt.Sprintf("%d", event.TargetID),
	}
	if err := h.push.NotifyActivity(ctx, event.RecipientID, event.ActorID, event.Verb, data); err != nil {
		logging.Component("worker").Warn().Err(err).
			Int64("recipient", event.RecipientID).
			Msg("push delivery failed")
	}
	return nil
}

// handleUserFollowed pushes a "new follower" alert. Follows produce no stored
// notification, so this push is the only signal the followee gets.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.ActivityEvent) error {
	if h.push == nil {
		return nil
	}

	data := map[string]string{
		"type":     "follow",
		"actor_id": fmt.Sprintf("%d", event.ActorID),
	}
	if err := h.push.NotifyActivity(ctx, event.FolloweeID, event.ActorID, "started following you", data); err != nil {
		logging.Component("worker").Warn().Err(err).
			Int64("followee", event.FolloweeID).
			Msg("follow push failed")
	}
	return nil
}
