package model

import (
	"fmt"
	"time"
)

// TargetType is the closed set of entities a notification can point at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Target identifies the object a notification is about.
type Target struct {
	Type TargetType `db:"target_type" json:"type"`
	ID   int64      `db:"target_id" json:"id"`
}

func PostTarget(postID int64) Target {
	return Target{Type: TargetPost, ID: postID}
}

func CommentTarget(commentID int64) Target {
	return Target{Type: TargetComment, ID: commentID}
}

// Key renders the target as "type:id", used in event payloads.
func (t Target) Key() string {
	return fmt.Sprintf("%s:%d", t.Type, t.ID)
}

// Notification verbs
const (
	VerbLikedPost     = "liked your post"
	VerbCommentedPost = "commented on your post"
	MaxVerbLength     = 255
)

// Notification is a record that Actor did Verb to Target, addressed to Recipient.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	ActorID     int64     `db:"actor_id" json:"actor_id"`
	Verb        string    `db:"verb" json:"verb"`
	Target      `json:"target"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"timestamp"`

	Actor *UserSummary `db:"-" json:"actor,omitempty"`
}

// NotificationRow is a notification joined with its actor.
type NotificationRow struct {
	Notification
	ActorUsername  string  `db:"actor_username"`
	ActorAvatarURL *string `db:"actor_avatar_url"`
}

func (r NotificationRow) ToNotification() Notification {
	n := r.Notification
	n.Actor = &UserSummary{
		ID:        r.ActorID,
		Username:  r.ActorUsername,
		AvatarURL: r.ActorAvatarURL,
	}
	return n
}

// NotificationListResponse is the paginated notification list response.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
	NextCursor    *string        `json:"next_cursor,omitempty"`
	HasMore       bool           `json:"has_more"`
}

// EmitRequest is the input to the notification emitter.
type EmitRequest struct {
	RecipientID int64
	ActorID     int64
	Verb        string
	Target      Target
}

// Validate checks that every required field is present.
func (r EmitRequest) Validate() error {
	switch {
	case r.RecipientID <= 0:
		return NewValidationError("notification recipient is required")
	case r.ActorID <= 0:
		return NewValidationError("notification actor is required")
	case r.Verb == "":
		return NewValidationError("notification verb is required")
	case len(r.Verb) > MaxVerbLength:
		return NewValidationError("notification verb too long")
	case !r.Target.Type.Valid():
		return NewValidationError(fmt.Sprintf("invalid notification target type %q", r.Target.Type))
	case r.Target.ID <= 0:
		return NewValidationError("notification target id is required")
	}
	return nil
}

var (
	ErrNotificationNotFound     = newKindError(ErrNotFound, "notification not found")
	ErrNotNotificationRecipient = newKindError(ErrForbidden, "notification belongs to another user")
)
