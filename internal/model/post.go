package model

import (
	"time"
)

// Post represents a user's text post.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields, filled by list queries
	LikeCount    int          `db:"like_count" json:"likes_count"`
	CommentCount int          `db:"comment_count" json:"comments_count"`
	Author       *UserSummary `db:"-" json:"author,omitempty"`
	IsLiked      bool         `db:"-" json:"is_liked"`
}

// PostRow is a post joined with its author, as returned by feed and list queries.
type PostRow struct {
	Post
	AuthorUsername  string  `db:"author_username" json:"-"`
	AuthorAvatarURL *string `db:"author_avatar_url" json:"-"`
}

// ToPost folds the joined author columns into Post.Author.
func (r PostRow) ToPost() Post {
	p := r.Post
	p.Author = &UserSummary{
		ID:        r.AuthorID,
		Username:  r.AuthorUsername,
		AvatarURL: r.AuthorAvatarURL,
	}
	return p
}

// PostDetail is a single post with its comments.
type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// PostListResponse is the paginated post list response.
type PostListResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// PostFilter narrows GET /posts. Title is an exact match; Search is a
// case-insensitive substring of title or content. Empty fields are ignored.
type PostFilter struct {
	Title  string
	Search string
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

// UpdatePostRequest is the request body for editing a post. Nil fields are kept.
type UpdatePostRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content" validate:"omitempty,min=1,max=10000"`
}

// LikeResult reports whether Like created a new like.
type LikeResult struct {
	Created bool `json:"created"`
}

// UnlikeResult reports whether Unlike removed a like.
type UnlikeResult struct {
	Removed bool `json:"removed"`
}

const (
	MaxPostTitleLength = 200
	DefaultPageLimit   = 10
	MaxPageLimit       = 50
)

var (
	ErrPostNotFound = newKindError(ErrNotFound, "post not found")
	ErrNotPostOwner = newKindError(ErrForbidden, "not the owner of this post")
	// ErrNotLiked is returned by the HTTP layer when unliking a post that was never liked.
	ErrNotLiked = newKindError(ErrValidation, "you have not liked this post")
)
