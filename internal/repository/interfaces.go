package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/model"
)

// Transactor runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Exists reports whether a user with this id exists.
	Exists(ctx context.Context, id int64) (bool, error)
	GetProfile(ctx context.Context, id int64) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
}

// RefreshTokenRepository stores hashed refresh tokens. Revoke reports
// whether the token was still live, which is how rotation detects reuse.
type RefreshTokenRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, tx *sqlx.Tx, id string, replacedBy *string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// FollowRepository owns the single follows edge table. Followers and
// following are both derived from it.
type FollowRepository interface {
	// Create inserts the edge and reports whether it was new.
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	// Delete removes the edge and reports whether it existed.
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error)
	GetFollowing(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
}

type PostRepository interface {
	Create(ctx context.Context, authorID int64, title, content string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	Update(ctx context.Context, postID int64, req model.UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, postID int64) error
	// GetFeed returns posts authored by users the viewer follows, newest
	// first, in one statement.
	GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error)
	List(ctx context.Context, filter model.PostFilter, cursor *string, limit int) ([]model.Post, *string, error)
	ListByAuthor(ctx context.Context, authorID int64, cursor *string, limit int) ([]model.Post, *string, error)
	GetAuthorID(ctx context.Context, postID int64) (int64, error)
}

type LikeRepository interface {
	// Create inserts the like and reports whether it was new.
	Create(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error)
	// Delete removes the like and reports whether it existed.
	Delete(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error)
	Exists(ctx context.Context, userID, postID int64) (bool, error)
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	CountByPost(ctx context.Context, postID int64) (int, error)
	GetLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Liker, *string, error)
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, postID, authorID int64, content string) (*model.Comment, error)
	Update(ctx context.Context, commentID int64, content string) (*model.Comment, error)
	Delete(ctx context.Context, commentID int64) error
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error)
}

type NotificationRepository interface {
	// Create inserts a notification inside the caller's transaction.
	Create(ctx context.Context, tx *sqlx.Tx, req model.EmitRequest) (*model.Notification, error)
	GetByID(ctx context.Context, id int64) (*model.Notification, error)
	// ListByRecipient returns notifications newest first.
	ListByRecipient(ctx context.Context, recipientID int64, cursor *string, limit int) ([]model.Notification, *string, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or reassigns a device token to a user
	Upsert(ctx context.Context, userID int64, token, platform string) error
	GetByUserID(ctx context.Context, userID int64) ([]model.DeviceToken, error)
	Delete(ctx context.Context, userID int64, token string) error
	// DeleteTokens removes tokens the push provider reported as unregistered.
	DeleteTokens(ctx context.Context, tokens []string) error
}
