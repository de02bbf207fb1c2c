package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/model"
)

type refreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create inserts token with its caller-assigned id. Rotation picks the id up
// front so the spent token can point at its replacement in the same tx.
func (r *refreshTokenRepository) Create(ctx context.Context, tx *sqlx.Tx, token *model.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, device_info, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.DeviceInfo, token.IPAddress,
	).Scan(&token.CreatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &token, nil
}

// Revoke spends a live token and reports whether this call did it. Under
// concurrent rotation of one token the row lock lets exactly one caller
// see true; the rest observe revoked_at already set.
func (r *refreshTokenRepository) Revoke(ctx context.Context, tx *sqlx.Tx, id string, replacedBy *string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	result, err := tx.ExecContext(ctx, query, id, replacedBy)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens for user: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes tokens that expired more than olderThan ago.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
