package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
	"socialmedia_api/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tx         repository.Transactor
	publisher  queue.Publisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	publisher queue.Publisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		tx:         tx,
		publisher:  publisher,
	}
}

// Follow makes followerID follow followeeID. Following someone already
// followed succeeds with Created=false.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	exists, err := s.userRepo.Exists(ctx, followeeID)
	if err != nil {
		return nil, fmt.Errorf("check followee: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}
	if followerID == followeeID {
		return nil, model.ErrCannotFollowSelf
	}

	var created bool
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = s.followRepo.Create(ctx, tx, followerID, followeeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordFollow("follow", created)
	if created {
		logging.Ctx(ctx).Debug().Int64("followee", followeeID).Msg("followed")
		publishActivity(ctx, s.publisher, queue.NewUserFollowedEvent(followerID, followeeID))
	}

	return &model.FollowResult{Created: created}, nil
}

// Unfollow removes the edge if present. Unfollowing someone not followed
// succeeds with Removed=false.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) (*model.UnfollowResult, error) {
	exists, err := s.userRepo.Exists(ctx, followeeID)
	if err != nil {
		return nil, fmt.Errorf("check followee: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	var removed bool
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		removed, err = s.followRepo.Delete(ctx, tx, followerID, followeeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordFollow("unfollow", removed)
	if removed {
		logging.Ctx(ctx).Debug().Int64("followee", followeeID).Msg("unfollowed")
		publishActivity(ctx, s.publisher, queue.NewUserUnfollowedEvent(followerID, followeeID))
	}

	return &model.UnfollowResult{Removed: removed}, nil
}

// IsFollowing reports whether followerID follows followeeID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

// GetFollowers lists the users following userID, most recent edge first.
// When viewerID is set each row carries whether the viewer follows that user.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.listEdges(ctx, userID, cursor, limit, viewerID, s.followRepo.GetFollowers)
}

// GetFollowing lists the users userID follows, most recent edge first.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.listEdges(ctx, userID, cursor, limit, viewerID, s.followRepo.GetFollowing)
}

type edgeLister func(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error)

func (s *FollowService) listEdges(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64, list edgeLister) (*model.FollowListResponse, error) {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	users, nextCursor, err := list(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.FollowEdgeUser{}
	}

	if viewerID != nil {
		s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	return &model.FollowListResponse{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

// enrichWithFollowStatus sets IsFollowing with one batch lookup. A failed
// lookup leaves every flag false rather than failing the listing.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, users []model.FollowEdgeUser) {
	if len(users) == 0 {
		return
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	followMap, err := s.followRepo.CheckFollows(ctx, viewerID, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("check follow status failed")
		return
	}
	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
}
