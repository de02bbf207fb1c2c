package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/transport/http/middleware"
)

// pathID parses the {id} URL parameter. On failure it writes a 400
// VALIDATION_ERROR and returns false.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteServiceError(w, r, model.NewValidationError("invalid "+what+" id"))
		return 0, false
	}
	return id, true
}

// currentActor returns the authenticated user or writes a 401.
func currentActor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return 0, false
	}
	return userID, true
}

// viewer returns the authenticated user on optional-auth routes.
func viewer(r *http.Request) *int64 {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// page reads ?cursor= and ?limit=. Limits above the maximum are clamped by
// the services; a non-numeric or non-positive limit is a 400.
func page(w http.ResponseWriter, r *http.Request) (*string, int, bool) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := model.DefaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteServiceError(w, r, model.NewValidationError("invalid limit parameter"))
			return nil, 0, false
		}
		limit = parsed
	}
	return cursor, limit, true
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, map[string]string{"message": message})
}
