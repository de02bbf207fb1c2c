package handler

import (
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := h.commentService.Create(r.Context(), userID, postID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// List handles GET /posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "post")
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	comments, err := h.commentService.GetByPostID(r.Context(), postID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comments)
}

// Update handles PUT /comments/{id} (author only).
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "comment")
	if !ok {
		return
	}

	var req model.UpdateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := h.commentService.Update(r.Context(), userID, commentID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /comments/{id} (author only).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(r.Context(), userID, commentID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
