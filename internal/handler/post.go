package handler

import (
	"context"
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
)

// PostService is the part of service.PostService the handler uses.
type PostService interface {
	List(ctx context.Context, filter model.PostFilter, cursor *string, limit int, viewerID *int64) (*model.PostListResponse, error)
	ListByAuthor(ctx context.Context, authorID int64, cursor *string, limit int, viewerID *int64) (*model.PostListResponse, error)
	Create(ctx context.Context, authorID int64, req model.CreatePostRequest) (*model.Post, error)
	GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.PostDetail, error)
	Update(ctx context.Context, actorID, postID int64, req model.UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, actorID, postID int64) error
	Like(ctx context.Context, actorID, postID int64) (*model.LikeResult, error)
	Unlike(ctx context.Context, actorID, postID int64) (*model.UnlikeResult, error)
	GetLikers(ctx context.Context, postID int64, cursor *string, limit int) (*model.LikersListResponse, error)
}

type PostHandler struct {
	postService PostService
}

func NewPostHandler(postService PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// List handles GET /posts?search=&title=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := model.PostFilter{Title: q.Get("title"), Search: q.Get("search")}
	posts, err := h.postService.List(r.Context(), filter, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

// Create handles POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID handles GET /posts/{id}
// Returns the post with its comments and the viewer's like status.
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	post, err := h.postService.GetByID(r.Context(), postID, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Update handles PUT /posts/{id} (author only).
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	var req model.UpdatePostRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	post, err := h.postService.Update(r.Context(), userID, postID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id} (author only).
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), userID, postID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUserPosts handles GET /users/{id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	posts, err := h.postService.ListByAuthor(r.Context(), userID, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, posts)
}

// Like handles POST /posts/{id}/like. Liking twice is a 200 with created=false.
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	result, err := h.postService.Like(r.Context(), userID, postID)
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

// Unlike handles POST /posts/{id}/unlike and DELETE /posts/{id}/like.
// Unliking a post that was never liked changes nothing and is reported as
// a client error.
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	result, err := h.postService.Unlike(r.Context(), userID, postID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if !result.Removed {
		httputil.WriteServiceError(w, r, model.ErrNotLiked)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetLikers handles GET /posts/{id}/likes
func (h *PostHandler) GetLikers(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	likers, err := h.postService.GetLikers(r.Context(), postID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, likers)
}
