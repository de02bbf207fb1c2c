package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/authz"
	"socialmedia_api/internal/cache"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
	"socialmedia_api/internal/repository"
)

// NotificationService emits in-app notifications and serves the recipient's
// list, read state and unread badge. Push delivery happens in the worker.
type NotificationService struct {
	notifRepo  repository.NotificationRepository
	tokenRepo  repository.DeviceTokenRepository
	authorizer authz.Authorizer
	unread     cache.UnreadCounter
	publisher  queue.Publisher
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	authorizer authz.Authorizer,
	unread cache.UnreadCounter,
	publisher queue.Publisher,
) *NotificationService {
	if unread == nil {
		unread = cache.NopUnreadCounter{}
	}
	return &NotificationService{
		notifRepo:  notifRepo,
		tokenRepo:  tokenRepo,
		authorizer: authorizer,
		unread:     unread,
		publisher:  publisher,
	}
}

// Emit stores one notification inside the caller's transaction. It only
// fails on a missing field or a store error.
func (s *NotificationService) Emit(ctx context.Context, tx *sqlx.Tx, req model.EmitRequest) (*model.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.notifRepo.Create(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	metrics.NotificationsEmitted.WithLabelValues(string(req.Target.Type)).Inc()
	return n, nil
}

// Announce runs after the emitting transaction commits: it drops the
// recipient's cached badge and queues push delivery.
func (s *NotificationService) Announce(ctx context.Context, n *model.Notification) {
	if n == nil {
		return
	}
	s.invalidateUnread(ctx, n.RecipientID)
	publishActivity(ctx, s.publisher, queue.NewNotificationCreatedEvent(
		n.ID, n.RecipientID, n.ActorID, n.Verb, string(n.Target.Type), n.Target.ID,
	))
}

// List returns the recipient's notifications newest first, with the
// current unread count.
func (s *NotificationService) List(ctx context.Context, recipientID int64, cursor *string, limit int) (*model.NotificationListResponse, error) {
	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)

	notifications, nextCursor, err := s.notifRepo.ListByRecipient(ctx, recipientID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
		NextCursor:    nextCursor,
		HasMore:       nextCursor != nil,
	}, nil
}

// MarkRead marks one notification read. Only its recipient may do so;
// marking an already read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, requesterID, notificationID int64) error {
	n, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}

	decision, err := s.authorizer.Authorize(requesterID, authz.ActionMarkRead, authz.Resource{
		Kind:    authz.KindNotification,
		ID:      n.ID,
		OwnerID: n.RecipientID,
	})
	if err != nil {
		return fmt.Errorf("authorize mark read: %w", err)
	}
	if !decision.Allowed {
		logging.Ctx(ctx).Info().Int64("notification_id", n.ID).Str("reason", decision.Reason).Msg("mark read denied")
		return model.ErrNotNotificationRecipient
	}

	if n.IsRead {
		return nil
	}
	if err := s.notifRepo.MarkRead(ctx, n.ID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, n.RecipientID)
	return nil
}

// MarkAllRead marks every unread notification of the recipient and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	n, err := s.notifRepo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidateUnread(ctx, recipientID)
	}
	return n, nil
}

// UnreadCount reads through the Redis badge cache. Cache failures fall back
// to the database. A count is only cached when no invalidation happened
// since the miss, so a concurrent mark-read cannot be overwritten.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	snap, err := s.unread.Get(ctx, recipientID)
	cacheOK := err == nil
	switch {
	case err != nil:
		metrics.RecordCacheLookup("unread", "error")
		logging.Ctx(ctx).Warn().Err(err).Msg("unread cache get failed")
	case snap.Found:
		metrics.RecordCacheLookup("unread", "hit")
		return snap.Count, nil
	default:
		metrics.RecordCacheLookup("unread", "miss")
	}

	count, err := s.notifRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if !cacheOK {
		return count, nil
	}

	stored, err := s.unread.Set(ctx, recipientID, count, snap.Generation)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Msg("unread cache set failed")
	case !stored:
		logging.Ctx(ctx).Debug().Int64("recipient", recipientID).Msg("unread count changed during read, not cached")
	}
	return count, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, recipientID int64) {
	if err := s.unread.Invalidate(ctx, recipientID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("recipient", recipientID).Msg("unread cache invalidate failed")
	}
}

// RegisterDeviceToken stores a push token, reassigning it when the device
// changed hands.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID int64, req model.RegisterTokenRequest) error {
	return s.tokenRepo.Upsert(ctx, userID, req.Token, req.Platform)
}

// RemoveDeviceToken removes one of the user's push tokens, typically on logout.
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, userID int64, token string) error {
	return s.tokenRepo.Delete(ctx, userID, token)
}
