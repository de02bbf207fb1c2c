package model

import (
	"time"
)

// Follow is a directed edge: FollowerID follows FolloweeID.
type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	AvatarURL   *string `db:"avatar_url" json:"profile_picture"`
	IsFollowing bool    `json:"is_following"`
}

// FollowEdgeUser is a row of a followers/following listing; CreatedAt is the
// edge timestamp used for keyset pagination.
type FollowEdgeUser struct {
	UserSummary
	CreatedAt time.Time `db:"created_at" json:"followed_at"`
}

type FollowListResponse struct {
	Users      []FollowEdgeUser `json:"users"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// FollowResult reports whether Follow created a new edge.
type FollowResult struct {
	Created bool `json:"created"`
}

// UnfollowResult reports whether Unfollow removed an edge.
type UnfollowResult struct {
	Removed bool `json:"removed"`
}

var (
	ErrCannotFollowSelf = newKindError(ErrSelfFollow, "cannot follow yourself")
)
