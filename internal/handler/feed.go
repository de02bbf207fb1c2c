package handler

import (
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns posts by the users the caller follows, newest first.
//
// Query params:
//   - cursor: optional, next_cursor from the previous page
//   - limit: optional, posts per page (default 10, max 50)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetFeed(r.Context(), userID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}
