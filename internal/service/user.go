package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/repository"
)

// UserService handles accounts and profiles.
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
	}
}

// Register creates a new account with an optional uploaded avatar.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, model.NewValidationError("username is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, model.NewValidationError("password is required")
	}
	if (req.AvatarURL == nil) != (req.AvatarKey == nil) {
		return nil, model.NewValidationError("avatar url and key must both be set or both omitted")
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		PasswordHashed: string(hashedPassword),
		Bio:            req.Bio,
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Ctx(ctx).Info().Int64("new_user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login authenticates with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Do not reveal whether the username exists.
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns a user with derived graph counts. IsFollowing is set
// when a viewer other than the user is given.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.UserProfile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && *viewerID != userID {
		isFollowing, err := s.followRepo.Exists(ctx, *viewerID, userID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("check follow status failed")
		} else {
			profile.IsFollowing = isFollowing
		}
	}

	return profile, nil
}

// UpdateProfile edits the caller's bio and avatar. It returns the user and
// the previous avatar key when the avatar was replaced, so the caller can
// remove the old object.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.User, *string, error) {
	var oldKey *string
	if req.AvatarKey != nil {
		current, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		oldKey = current.AvatarKey
	}

	user, err := s.repo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, nil, err
	}
	return user, oldKey, nil
}

// Search finds users by username prefix.
func (s *UserService) Search(ctx context.Context, query string, limit int, viewerID *int64) ([]model.UserSummary, error) {
	limit = clampLimit(limit, model.DefaultPageLimit, model.MaxPageLimit)
	users, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(users) > 0 {
		ids := make([]int64, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}

		followMap, err := s.followRepo.CheckFollows(ctx, *viewerID, ids)
		if err == nil {
			for i := range users {
				users[i].IsFollowing = followMap[users[i].ID]
			}
		}
	}

	return users, nil
}
