package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentSelect = `
	SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, c.updated_at,
	       u.username AS author_username, u.avatar_url AS author_avatar_url
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, postID, authorID int64, content string) (*model.Comment, error) {
	query := `
		INSERT INTO comments (post_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, post_id, author_id, content, created_at, updated_at
	`
	var c model.Comment
	if err := tx.GetContext(ctx, &c, query, postID, authorID, content); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

func (r *commentRepository) Update(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1`, commentID, content)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	} else if rows == 0 {
		return nil, model.ErrCommentNotFound
	}
	return r.GetByID(ctx, commentID)
}

func (r *commentRepository) Delete(ctx context.Context, commentID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	var row model.CommentRow
	if err := r.db.GetContext(ctx, &row, commentSelect+` WHERE c.id = $1`, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	c := row.ToComment()
	return &c, nil
}

// GetByPostID lists comments oldest first so threads read top to bottom.
func (r *commentRepository) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	query := commentSelect + ` WHERE c.post_id = $1`
	args := []interface{}{postID}

	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND (c.created_at, c.id) > ($2, $3)`
		args = append(args, ts, id)
	}
	query += fmt.Sprintf(` ORDER BY c.created_at ASC, c.id ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	var rows []model.CommentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get comments: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	comments := make([]model.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.ToComment())
	}
	return comments, nextCursor, nil
}
