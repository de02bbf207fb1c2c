package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialmedia_api/internal/model"
)

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Upsert registers token for userID. A token already registered to another
// user moves to this one, since a device has one signed-in account.
func (r *deviceTokenRepository) Upsert(ctx context.Context, userID int64, token, platform string) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *deviceTokenRepository) GetByUserID(ctx context.Context, userID int64) ([]model.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	tokens := []model.DeviceToken{}
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	return tokens, nil
}

func (r *deviceTokenRepository) Delete(ctx context.Context, userID int64, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

func (r *deviceTokenRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ANY($1)`, pq.Array(tokens))
	if err != nil {
		return fmt.Errorf("delete device tokens: %w", err)
	}
	return nil
}
