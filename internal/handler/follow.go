package handler

import (
	"context"
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
)

// FollowService is the part of service.FollowService the handler uses.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error)
	Unfollow(ctx context.Context, followerID, followeeID int64) (*model.UnfollowResult, error)
	GetFollowers(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.FollowListResponse, error)
	GetFollowing(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.FollowListResponse, error)
}

type FollowHandler struct {
	followService FollowService
}

func NewFollowHandler(followService FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles POST /follow/{id} and POST /users/{id}/follow.
// Following someone already followed is a 200 with created=false.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := currentActor(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	result, err := h.followService.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}

// Unfollow handles POST /unfollow/{id} and DELETE /users/{id}/follow.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := currentActor(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	result, err := h.followService.Unfollow(r.Context(), followerID, followeeID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetFollowers handles GET /users/{id}/followers.
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	result, err := h.followService.GetFollowers(r.Context(), userID, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetFollowing handles GET /users/{id}/following.
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	result, err := h.followService.GetFollowing(r.Context(), userID, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
