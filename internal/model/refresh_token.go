package model

import (
	"time"
)

// RefreshToken is a stored refresh token. Only the SHA-256 of the raw
// token is kept. A rotated token points at its successor via ReplacedBy.
type RefreshToken struct {
	ID         string     `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	TokenHash  string     `db:"token_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	ReplacedBy *string    `db:"replaced_by" json:"replaced_by,omitempty"`
	DeviceInfo *string    `db:"device_info" json:"device_info,omitempty"`
	IPAddress  *string    `db:"ip_address" json:"-"`
}

// IsRevoked reports whether the token was spent by rotation, logout or a
// family revocation.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

var (
	ErrRefreshTokenNotFound = newKindError(ErrUnauthorized, "refresh token not found")
	ErrRefreshTokenExpired  = newKindError(ErrUnauthorized, "refresh token expired")
	ErrRefreshTokenReused   = newKindError(ErrUnauthorized, "refresh token reuse detected")
)

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // Seconds until access token expires
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest is the request body for POST /auth/logout
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
