package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/authz"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
	"socialmedia_api/internal/repository"
)

// notificationEmitter is the part of NotificationService that actions
// producing notifications depend on.
type notificationEmitter interface {
	Emit(ctx context.Context, tx *sqlx.Tx, req model.EmitRequest) (*model.Notification, error)
	Announce(ctx context.Context, n *model.Notification)
}

// NotifyPolicy decides whether an action notifies the owner of its target.
type NotifyPolicy struct {
	// SuppressSelf skips notifications where actor and recipient are the same user.
	SuppressSelf bool
}

func (p NotifyPolicy) ShouldNotify(actorID, recipientID int64) bool {
	return !(p.SuppressSelf && actorID == recipientID)
}

type PostService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	tx          repository.Transactor
	notifier    notificationEmitter
	authorizer  authz.Authorizer
	publisher   queue.Publisher
	policy      NotifyPolicy
}

func NewPostService(
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	tx repository.Transactor,
	notifier notificationEmitter,
	authorizer authz.Authorizer,
	publisher queue.Publisher,
	policy NotifyPolicy,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		tx:          tx,
		notifier:    notifier,
		authorizer:  authorizer,
		publisher:   publisher,
		policy:      policy,
	}
}

func (s *PostService) Create(ctx context.Context, authorID int64, req model.CreatePostRequest) (*model.Post, error) {
	post, err := s.postRepo.Create(ctx, authorID, req.Title, req.Content)
	if err != nil {
		return nil, err
	}

	// Re-read to pick up the joined author.
	full, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("post_id", post.ID).Msg("reload created post failed")
		return post, nil
	}
	return full, nil
}

// GetByID returns a post with its first page of comments. viewerID, when
// set, fills IsLiked.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		liked, err := s.likeRepo.Exists(ctx, *viewerID, postID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("check like status failed")
		} else {
			post.IsLiked = liked
		}
	}

	comments, _, err := s.commentRepo.GetByPostID(ctx, postID, nil, model.MaxPageLimit)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	return &model.PostDetail{Post: *post, Comments: comments}, nil
}

// Update edits a post. Only its author may do so.
func (s *PostService) Update(ctx context.Context, actorID, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	if err := s.authorizeOwner(ctx, actorID, postID, authz.ActionUpdate); err != nil {
		return nil, err
	}
	return s.postRepo.Update(ctx, postID, req)
}

// Delete removes a post with its likes and comments. Only its author may do so.
func (s *PostService) Delete(ctx context.Context, actorID, postID int64) error {
	if err := s.authorizeOwner(ctx, actorID, postID, authz.ActionDelete); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Int64("post_id", postID).Msg("post deleted")
	return nil
}

func (s *PostService) authorizeOwner(ctx context.Context, actorID, postID int64, action authz.Action) error {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return err
	}

	decision, err := s.authorizer.Authorize(actorID, action, authz.Resource{
		Kind:    authz.KindPost,
		ID:      postID,
		OwnerID: authorID,
	})
	if err != nil {
		return fmt.Errorf("authorize %s post: %w", action, err)
	}
	if !decision.Allowed {
		logging.Ctx(ctx).Info().Int64("post_id", postID).Str("reason", decision.Reason).Msg("post change denied")
		return model.ErrNotPostOwner
	}
	return nil
}

// List returns all posts newest first, narrowed by filter.
func (s *PostService) List(ctx context.Context, filter model.PostFilter, cursor *string, limit int, viewerID *int64) (*model.PostListResponse, error) {
	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	posts, nextCursor, err := s.postRepo.List(ctx, filter, cursor, limit)
	if err != nil {
		return nil, err
	}
	return s.postList(ctx, posts, nextCursor, viewerID), nil
}

// ListByAuthor returns one user's posts newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID int64, cursor *string, limit int, viewerID *int64) (*model.PostListResponse, error) {
	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	posts, nextCursor, err := s.postRepo.ListByAuthor(ctx, authorID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return s.postList(ctx, posts, nextCursor, viewerID), nil
}

func (s *PostService) postList(ctx context.Context, posts []model.Post, nextCursor *string, viewerID *int64) *model.PostListResponse {
	if posts == nil {
		posts = []model.Post{}
	}
	if viewerID != nil {
		enrichWithLikeStatus(ctx, s.likeRepo, *viewerID, posts)
	}
	return &model.PostListResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}
}

// Like records that actorID likes postID. The like and its notification to
// the post author commit together; liking twice creates neither again.
func (s *PostService) Like(ctx context.Context, actorID, postID int64) (*model.LikeResult, error) {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var (
		created      bool
		notification *model.Notification
	)
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = s.likeRepo.Create(ctx, tx, actorID, postID)
		if err != nil || !created {
			return err
		}
		if !s.policy.ShouldNotify(actorID, authorID) {
			return nil
		}
		notification, err = s.notifier.Emit(ctx, tx, model.EmitRequest{
			RecipientID: authorID,
			ActorID:     actorID,
			Verb:        model.VerbLikedPost,
			Target:      model.PostTarget(postID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLike("like", created)
	if created {
		publishActivity(ctx, s.publisher, queue.NewPostLikedEvent(actorID, postID))
		s.notifier.Announce(ctx, notification)
	}

	return &model.LikeResult{Created: created}, nil
}

// Unlike removes actorID's like of postID. Notifications already sent stay.
func (s *PostService) Unlike(ctx context.Context, actorID, postID int64) (*model.UnlikeResult, error) {
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}

	var removed bool
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		removed, err = s.likeRepo.Delete(ctx, tx, actorID, postID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLike("unlike", removed)
	if removed {
		publishActivity(ctx, s.publisher, queue.NewPostUnlikedEvent(actorID, postID))
	}

	return &model.UnlikeResult{Removed: removed}, nil
}

// GetLikers lists the users who liked a post, most recent first.
func (s *PostService) GetLikers(ctx context.Context, postID int64, cursor *string, limit int) (*model.LikersListResponse, error) {
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}

	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	users, nextCursor, err := s.likeRepo.GetLikers(ctx, postID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.Liker{}
	}

	return &model.LikersListResponse{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

// enrichWithLikeStatus sets IsLiked with one batch lookup.
func enrichWithLikeStatus(ctx context.Context, likeRepo repository.LikeRepository, viewerID int64, posts []model.Post) {
	if len(posts) == 0 {
		return
	}

	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked, err := likeRepo.CheckLikes(ctx, viewerID, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("check like status failed")
		return
	}
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
}
