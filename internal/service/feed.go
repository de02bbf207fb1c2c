package service

import (
	"context"
	"time"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/repository"
)

type FeedService struct {
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
}

func NewFeedService(postRepo repository.PostRepository, likeRepo repository.LikeRepository) *FeedService {
	return &FeedService{
		postRepo: postRepo,
		likeRepo: likeRepo,
	}
}

// GetFeed returns posts by the users viewerID follows, newest first. The
// feed is computed on read, so a new follow or post shows up immediately.
// Following nobody yields an empty page, not an error.
func (s *FeedService) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()
	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)

	posts, nextCursor, err := s.postRepo.GetFeed(ctx, viewerID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}

	enrichWithLikeStatus(ctx, s.likeRepo, viewerID, posts)

	metrics.RecordFeed(len(posts))
	logging.Ctx(ctx).Debug().
		Int("posts", len(posts)).
		Bool("has_more", nextCursor != nil).
		Dur("duration", time.Since(startTime)).
		Msg("feed served")

	return &model.FeedResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}
