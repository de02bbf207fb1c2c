package model

import (
	"time"
)

// Comment represents a comment on a post.
type Comment struct {
	ID        int64        `db:"id" json:"id"`
	PostID    int64        `db:"post_id" json:"post_id"`
	AuthorID  int64        `db:"author_id" json:"author_id"`
	Content   string       `db:"content" json:"content"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	Author    *UserSummary `db:"-" json:"author,omitempty"`
}

// CommentRow is a comment joined with its author.
type CommentRow struct {
	Comment
	AuthorUsername  string  `db:"author_username"`
	AuthorAvatarURL *string `db:"author_avatar_url"`
}

func (r CommentRow) ToComment() Comment {
	c := r.Comment
	c.Author = &UserSummary{
		ID:        r.AuthorID,
		Username:  r.AuthorUsername,
		AvatarURL: r.AuthorAvatarURL,
	}
	return c
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2200"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2200"`
}

// CommentListResponse is the paginated comment list response.
type CommentListResponse struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// LikersListResponse is the paginated likers list response.
type LikersListResponse struct {
	Users      []Liker `json:"users"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// Liker is a user who liked a post, with the like timestamp.
type Liker struct {
	UserSummary
	CreatedAt time.Time `db:"created_at" json:"liked_at"`
}

var (
	ErrCommentNotFound = newKindError(ErrNotFound, "comment not found")
	ErrNotCommentOwner = newKindError(ErrForbidden, "not the owner of this comment")
)
