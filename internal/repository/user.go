package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialmedia_api/internal/model"
)

// Postgres error codes the repositories translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func isPgError(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, password_hashed, bio, avatar_url, avatar_key, created_at, updated_at`

// Create inserts a new user and fills in the generated id and timestamps.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, password_hashed, bio, avatar_url, avatar_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.PasswordHashed,
		u.Bio,
		u.AvatarURL,
		u.AvatarKey,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return model.ErrUsernameExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// GetProfile loads a user with follower, following and post counts derived
// from the edge and post tables.
func (r *userRepository) GetProfile(ctx context.Context, id int64) (*model.UserProfile, error) {
	query := `
		SELECT u.id, u.username, u.password_hashed, u.bio, u.avatar_url, u.avatar_key, u.created_at, u.updated_at,
		       (SELECT COUNT(*) FROM follows WHERE followee_id = u.id) AS follower_count,
		       (SELECT COUNT(*) FROM follows WHERE follower_id = u.id) AS following_count,
		       (SELECT COUNT(*) FROM posts WHERE author_id = u.id) AS post_count
		FROM users u
		WHERE u.id = $1
	`

	var p model.UserProfile
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &p, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users SET
			bio = COALESCE($2, bio),
			avatar_url = COALESCE($3, avatar_url),
			avatar_key = COALESCE($4, avatar_key),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	if err := r.db.GetContext(ctx, &u, query, id, req.Bio, req.AvatarURL, req.AvatarKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	return &u, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, username, avatar_url
		FROM users
		WHERE username ILIKE $1
		ORDER BY username
		LIMIT $2
	`

	users := []model.UserSummary{}
	err := r.db.SelectContext(ctx, &users, searchQuery, query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
