package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/config"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/repository"
)

// AuthService issues access tokens and rotates refresh tokens. A refresh
// token can be exchanged once. Presenting a spent one revokes every refresh
// token of its owner.
type AuthService struct {
	tokens     repository.RefreshTokenRepository
	tx         repository.Transactor
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(tokens repository.RefreshTokenRepository, tx repository.Transactor, cfg *config.Config) *AuthService {
	return &AuthService{
		tokens:     tokens,
		tx:         tx,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.AccessTokenMaxAge) * time.Second,
		refreshTTL: time.Duration(cfg.RefreshTokenMaxAge) * time.Second,
		now:        time.Now,
	}
}

// GenerateTokenPair starts a new refresh family for a freshly authenticated user.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	var pair *model.TokenPair
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		pair, err = s.issue(ctx, tx, userID, uuid.NewString(), deviceInfo, ipAddress)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RefreshTokens exchanges a live refresh token for a new pair. Spending the
// old token and storing its successor happen in one transaction, so of two
// concurrent exchanges of the same token exactly one succeeds and the other
// is handled as reuse.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error) {
	current, err := s.tokens.FindByTokenHash(ctx, hashRefreshToken(refreshTokenRaw))
	if err != nil {
		return nil, 0, err
	}
	if current.IsRevoked() {
		return nil, 0, s.revokeFamily(ctx, current.UserID)
	}
	if current.ExpiredAt(s.now()) {
		return nil, 0, model.ErrRefreshTokenExpired
	}

	successorID := uuid.NewString()
	var pair *model.TokenPair
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		spent, err := s.tokens.Revoke(ctx, tx, current.ID, &successorID)
		if err != nil {
			return err
		}
		if !spent {
			return model.ErrRefreshTokenReused
		}
		pair, err = s.issue(ctx, tx, current.UserID, successorID, deviceInfo, ipAddress)
		return err
	})
	switch {
	case errors.Is(err, model.ErrRefreshTokenReused):
		return nil, 0, s.revokeFamily(ctx, current.UserID)
	case err != nil:
		return nil, 0, err
	}
	return pair, current.UserID, nil
}

// RevokeRefreshToken spends one refresh token on logout. An already revoked
// token is not an error.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.tokens.FindByTokenHash(ctx, hashRefreshToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.tokens.Revoke(ctx, tx, token.ID, nil)
		return err
	})
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	_, err := s.tokens.RevokeAllForUser(ctx, userID)
	return err
}

// revokeFamily answers a reused token. The caller always gets
// ErrRefreshTokenReused; a failed revocation is logged at error level.
func (s *AuthService) revokeFamily(ctx context.Context, userID int64) error {
	log := logging.Ctx(ctx)
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("token_user_id", userID).Msg("revoke token family failed")
		return model.ErrRefreshTokenReused
	}
	log.Warn().Int64("token_user_id", userID).Int64("revoked", n).Msg("refresh token reuse detected")
	return model.ErrRefreshTokenReused
}

// issue signs an access token and stores a refresh token with the given id on tx.
func (s *AuthService) issue(ctx context.Context, tx *sqlx.Tx, userID int64, refreshID, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	now := s.now()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	raw := uuid.NewString()
	err = s.tokens.Create(ctx, tx, &model.RefreshToken{
		ID:         refreshID,
		UserID:     userID,
		TokenHash:  hashRefreshToken(raw),
		ExpiresAt:  now.Add(s.refreshTTL),
		DeviceInfo: optionalString(deviceInfo),
		IPAddress:  optionalString(ipAddress),
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int(s.accessTTL / time.Second),
	}, nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
