package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// postSelect joins the author and derives like/comment counts per row.
const postSelect = `
	SELECT p.id, p.author_id, p.title, p.content, p.created_at, p.updated_at,
	       u.username AS author_username, u.avatar_url AS author_avatar_url,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.author_id`

func (r *postRepository) Create(ctx context.Context, authorID int64, title, content string) (*model.Post, error) {
	query := `
		INSERT INTO posts (author_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, author_id, title, content, created_at, updated_at
	`
	var p model.Post
	if err := r.db.GetContext(ctx, &p, query, authorID, title, content); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &p, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	var row model.PostRow
	if err := r.db.GetContext(ctx, &row, postSelect+` WHERE p.id = $1`, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	p := row.ToPost()
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	query := `
		UPDATE posts SET
			title = COALESCE($2, title),
			content = COALESCE($3, content),
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, postID, req.Title, req.Content)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	} else if rows == 0 {
		return nil, model.ErrPostNotFound
	}
	return r.GetByID(ctx, postID)
}

// Delete removes the post; likes and comments go with it via ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, postID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// GetFeed reads the follow set and the matching posts in a single statement,
// so the result reflects one snapshot. The viewer cannot follow themselves,
// and the explicit author filter keeps their own posts out regardless.
func (r *postRepository) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	where := ` WHERE p.author_id IN (SELECT f.followee_id FROM follows f WHERE f.follower_id = $1)
	             AND p.author_id <> $1`
	return r.page(ctx, postSelect+where, []interface{}{viewerID}, cursor, limit)
}

// List returns all posts newest first, narrowed by filter.
func (r *postRepository) List(ctx context.Context, filter model.PostFilter, cursor *string, limit int) ([]model.Post, *string, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Title != "" {
		args = append(args, filter.Title)
		conds = append(conds, fmt.Sprintf(`p.title = $%d`, len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf(`(p.title ILIKE $%[1]d OR p.content ILIKE $%[1]d)`, len(args)))
	}

	where := ` WHERE TRUE`
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}
	return r.page(ctx, postSelect+where, args, cursor, limit)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	return r.page(ctx, postSelect+` WHERE p.author_id = $1`, []interface{}{authorID}, cursor, limit)
}

// page appends keyset pagination on (created_at, id) to a filtered post query.
func (r *postRepository) page(ctx context.Context, query string, args []interface{}, cursor *string, limit int) ([]model.Post, *string, error) {
	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += fmt.Sprintf(` AND (p.created_at, p.id) < ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, ts, id)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	var rows []model.PostRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list posts: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	posts := make([]model.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.ToPost())
	}
	return posts, nextCursor, nil
}

func (r *postRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	var authorID int64
	if err := r.db.GetContext(ctx, &authorID, `SELECT author_id FROM posts WHERE id = $1`, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrPostNotFound
		}
		return 0, fmt.Errorf("get post author: %w", err)
	}
	return authorID, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
