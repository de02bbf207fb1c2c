package handler

import (
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/service"
	"socialmedia_api/internal/validation"
)

type UserHandler struct {
	userService  *service.UserService
	mediaService *service.MediaService
}

func NewUserHandler(userService *service.UserService, mediaService *service.MediaService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		mediaService: mediaService,
	}
}

// GetProfile handles GET /users/{id}
// Counts are derived from the follow graph; is_following is set for a signed-in viewer.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, nil)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateMe handles PUT /me. JSON bodies edit the bio; multipart bodies may
// also carry a new avatar, which replaces and deletes the old one.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	var upload *model.UploadResult
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
		if values, present := r.MultipartForm.Value["bio"]; present && len(values) > 0 {
			req.Bio = &values[0]
		}
		if err := validation.ValidateStruct(&req); err != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
		var err error
		if upload, err = uploadAvatar(r, h.mediaService); err != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
		if upload != nil {
			req.AvatarURL = &upload.URL
			req.AvatarKey = &upload.Key
		}
	} else if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	user, oldKey, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		if upload != nil {
			discardAvatar(r.Context(), h.mediaService, &upload.Key)
		}
		httputil.WriteServiceError(w, r, err)
		return
	}
	if upload != nil {
		discardAvatar(r.Context(), h.mediaService, oldKey)
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Search handles GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteServiceError(w, r, model.NewValidationError("query parameter 'q' is required"))
		return
	}
	_, limit, ok := page(w, r)
	if !ok {
		return
	}

	users, err := h.userService.Search(r.Context(), query, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}
