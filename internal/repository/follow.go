package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialmedia_api/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create relies on the (follower_id, followee_id) primary key, so concurrent
// duplicate follows collapse into one edge.
func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		switch {
		case isPgError(err, pgCheckViolation):
			return false, model.ErrCannotFollowSelf
		case isPgError(err, pgForeignKeyViolation):
			return false, model.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// GetFollowers lists users who follow userID, most recent edge first.
//
// Pagination fetches limit+1 rows; when the extra row is present the page is
// trimmed and the last kept row becomes the cursor.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	return r.listEdges(ctx, `
		SELECT u.id, u.username, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1`, userID, cursor, limit)
}

// GetFollowing lists users that userID follows, most recent edge first.
func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	return r.listEdges(ctx, `
		SELECT u.id, u.username, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1`, userID, cursor, limit)
}

func (r *followRepository) listEdges(ctx context.Context, base string, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	query := base
	args := []interface{}{userID}

	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND (f.created_at, u.id) < ($2, $3)`
		args = append(args, ts, id)
	}
	query += fmt.Sprintf(` ORDER BY f.created_at DESC, u.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	users := []model.FollowEdgeUser{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to list follow edges: %w", err)
	}

	var nextCursor *string
	if len(users) > limit {
		users = users[:limit]
		last := users[len(users)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return users, nextCursor, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`
	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}

	return result, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE followee_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE follower_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return n, nil
}
