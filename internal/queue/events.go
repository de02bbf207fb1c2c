package queue

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Event types for the activity stream
const (
	EventUserFollowed        = "user_followed"
	EventUserUnfollowed      = "user_unfollowed"
	EventPostLiked           = "post_liked"
	EventPostUnliked         = "post_unliked"
	EventPostCommented       = "post_commented"
	EventNotificationCreated = "notification_created"
)

const (
	StreamActivity = "stream:activity"

	ConsumerGroupActivity = "activity_workers"
)

// ActivityEvent is published after a mutation commits. Consumers treat it as
// a hint: the database remains the source of truth.
type ActivityEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	ActorID int64 `json:"actor_id"`

	// Follow events
	FolloweeID int64 `json:"followee_id,omitempty"`

	// Like and comment events
	PostID    int64 `json:"post_id,omitempty"`
	CommentID int64 `json:"comment_id,omitempty"`

	// Notification events
	NotificationID int64  `json:"notification_id,omitempty"`
	RecipientID    int64  `json:"recipient_id,omitempty"`
	Verb           string `json:"verb,omitempty"`
	TargetType     string `json:"target_type,omitempty"`
	TargetID       int64  `json:"target_id,omitempty"`
}

func NewUserFollowedEvent(followerID, followeeID int64) ActivityEvent {
	return ActivityEvent{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		ActorID:    followerID,
		FolloweeID: followeeID,
	}
}

func NewUserUnfollowedEvent(followerID, followeeID int64) ActivityEvent {
	return ActivityEvent{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		ActorID:    followerID,
		FolloweeID: followeeID,
	}
}

func NewPostLikedEvent(actorID, postID int64) ActivityEvent {
	return ActivityEvent{
		Type:      EventPostLiked,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		PostID:    postID,
	}
}

func NewPostUnlikedEvent(actorID, postID int64) ActivityEvent {
	return ActivityEvent{
		Type:      EventPostUnliked,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		PostID:    postID,
	}
}

func NewPostCommentedEvent(actorID, postID, commentID int64) ActivityEvent {
	return ActivityEvent{
		Type:      EventPostCommented,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		PostID:    postID,
		CommentID: commentID,
	}
}

// NewNotificationCreatedEvent tells workers to refresh the recipient's unread
// count and deliver a push.
func NewNotificationCreatedEvent(id, recipientID, actorID int64, verb, targetType string, targetID int64) ActivityEvent {
	return ActivityEvent{
		Type:           EventNotificationCreated,
		Timestamp:      time.Now().Unix(),
		ActorID:        actorID,
		NotificationID: id,
		RecipientID:    recipientID,
		Verb:           verb,
		TargetType:     targetType,
		TargetID:       targetID,
	}
}

// ToMap converts the event to XADD field-value pairs. The payload lives in a
// single JSON "data" field.
func (e ActivityEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseActivityEvent parses an ActivityEvent from Redis stream message values.
func ParseActivityEvent(values map[string]interface{}) (ActivityEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ActivityEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ActivityEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ActivityEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return ActivityEvent{}, fmt.Errorf("event has no type")
	}
	return event, nil
}
