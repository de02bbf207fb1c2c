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

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Create inserts a like. The (user_id, post_id) unique constraint makes a
// concurrent duplicate insert a no-op, reported as created=false.
func (r *likeRepository) Create(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error) {
	query := `
		INSERT INTO likes (user_id, post_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, post_id) DO NOTHING
		RETURNING id
	`
	var id int64
	err := tx.QueryRowxContext(ctx, query, userID, postID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if isPgError(err, pgForeignKeyViolation) {
			return false, model.ErrPostNotFound
		}
		return false, fmt.Errorf("insert like: %w", err)
	}
	return true, nil
}

func (r *likeRepository) Delete(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, postID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2)`, userID, postID)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return exists, nil
}

// CheckLikes reports which of postIDs the user has liked.
func (r *likeRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var liked []int64
	err := r.db.SelectContext(ctx, &liked,
		`SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)`, userID, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}
	for _, id := range liked {
		result[id] = true
	}
	return result, nil
}

func (r *likeRepository) CountByPost(ctx context.Context, postID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

// GetLikers returns users who liked a post, most recent like first. The
// cursor carries the like id, not the user id.
func (r *likeRepository) GetLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Liker, *string, error) {
	query := `
		SELECT l.id AS like_id, u.id, u.username, u.avatar_url, l.created_at
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.post_id = $1`
	args := []interface{}{postID}

	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND (l.created_at, l.id) < ($2, $3)`
		args = append(args, ts, id)
	}
	query += fmt.Sprintf(` ORDER BY l.created_at DESC, l.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	type likerRow struct {
		model.Liker
		LikeID int64 `db:"like_id"`
	}
	var rows []likerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get post likers: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.LikeID)
		nextCursor = &c
	}

	likers := make([]model.Liker, 0, len(rows))
	for _, row := range rows {
		likers = append(likers, row.Liker)
	}
	return likers, nextCursor, nil
}
