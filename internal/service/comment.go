package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/authz"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
	"socialmedia_api/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	tx          repository.Transactor
	notifier    notificationEmitter
	authorizer  authz.Authorizer
	publisher   queue.Publisher
	policy      NotifyPolicy
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	tx repository.Transactor,
	notifier notificationEmitter,
	authorizer authz.Authorizer,
	publisher queue.Publisher,
	policy NotifyPolicy,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		tx:          tx,
		notifier:    notifier,
		authorizer:  authorizer,
		publisher:   publisher,
		policy:      policy,
	}
}

// Create adds a comment and, in the same transaction, notifies the post
// author with the comment as target.
func (s *CommentService) Create(ctx context.Context, actorID, postID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var (
		comment      *model.Comment
		notification *model.Notification
	)
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		comment, err = s.commentRepo.Create(ctx, tx, postID, actorID, req.Content)
		if err != nil {
			return err
		}
		if !s.policy.ShouldNotify(actorID, authorID) {
			return nil
		}
		notification, err = s.notifier.Emit(ctx, tx, model.EmitRequest{
			RecipientID: authorID,
			ActorID:     actorID,
			Verb:        model.VerbCommentedPost,
			Target:      model.CommentTarget(comment.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishActivity(ctx, s.publisher, queue.NewPostCommentedEvent(actorID, postID, comment.ID))
	s.notifier.Announce(ctx, notification)

	if full, err := s.commentRepo.GetByID(ctx, comment.ID); err == nil {
		comment = full
	}
	return comment, nil
}

// Update edits a comment. Only its author may do so.
func (s *CommentService) Update(ctx context.Context, actorID, commentID int64, req model.UpdateCommentRequest) (*model.Comment, error) {
	if err := s.authorizeOwner(ctx, actorID, commentID, authz.ActionUpdate); err != nil {
		return nil, err
	}
	return s.commentRepo.Update(ctx, commentID, req.Content)
}

// Delete removes a comment. Only its author may do so.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID int64) error {
	if err := s.authorizeOwner(ctx, actorID, commentID, authz.ActionDelete); err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, commentID)
}

func (s *CommentService) authorizeOwner(ctx context.Context, actorID, commentID int64, action authz.Action) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	decision, err := s.authorizer.Authorize(actorID, action, authz.Resource{
		Kind:    authz.KindComment,
		ID:      commentID,
		OwnerID: comment.AuthorID,
	})
	if err != nil {
		return fmt.Errorf("authorize %s comment: %w", action, err)
	}
	if !decision.Allowed {
		logging.Ctx(ctx).Info().Int64("comment_id", commentID).Str("reason", decision.Reason).Msg("comment change denied")
		return model.ErrNotCommentOwner
	}
	return nil
}

// GetByPostID lists a post's comments oldest first.
func (s *CommentService) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error) {
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}

	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	comments, nextCursor, err := s.commentRepo.GetByPostID(ctx, postID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	return &model.CommentListResponse{
		Comments:   comments,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}
