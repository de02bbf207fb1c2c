package model

import (
	"time"
)

// User represents an account. Follower and following counts are derived from
// the follows table on read, never stored.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHashed string    `db:"password_hashed" json:"-"`
	Bio            string    `db:"bio" json:"bio"`
	AvatarURL      *string   `db:"avatar_url" json:"profile_picture"`
	AvatarKey      *string   `db:"avatar_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserProfile is a user with derived graph counts for the viewer.
type UserProfile struct {
	User
	FollowerCount  int  `db:"follower_count" json:"followers_count"`
	FollowingCount int  `db:"following_count" json:"following_count"`
	PostCount      int  `db:"post_count" json:"posts_count"`
	IsFollowing    bool `json:"is_following"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=150,alphanumunicode"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	Bio       string  `json:"bio" validate:"max=500"`
	AvatarURL *string `json:"-"`
	AvatarKey *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries optional profile edits. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string `json:"-"`
	AvatarKey *string `json:"-"`
}

var (
	ErrUserNotFound       = newKindError(ErrNotFound, "user not found")
	ErrUsernameExists     = newKindError(ErrConflict, "username already exists")
	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid credentials")
)
