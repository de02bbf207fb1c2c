package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, actor_id, verb, target_type, target_id, is_read, created_at`

// Create inserts inside tx so the notification commits or rolls back with the
// action that produced it.
func (r *notificationRepository) Create(ctx context.Context, tx *sqlx.Tx, req model.EmitRequest) (*model.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, actor_id, verb, target_type, target_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns
	var n model.Notification
	err := tx.GetContext(ctx, &n, query, req.RecipientID, req.ActorID, req.Verb, string(req.Target.Type), req.Target.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID int64, cursor *string, limit int) ([]model.Notification, *string, error) {
	query := `
		SELECT n.id, n.recipient_id, n.actor_id, n.verb, n.target_type, n.target_id, n.is_read, n.created_at,
		       u.username AS actor_username, u.avatar_url AS actor_avatar_url
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE n.recipient_id = $1`
	args := []interface{}{recipientID}

	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND (n.created_at, n.id) < ($2, $3)`
		args = append(args, ts, id)
	}
	query += fmt.Sprintf(` ORDER BY n.created_at DESC, n.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	var rows []model.NotificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list notifications: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	out := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToNotification())
	}
	return out, nextCursor, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
