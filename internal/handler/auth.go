package handler

import (
	"errors"
	"net/http"
	"strings"

	"socialmedia_api/internal/config"
	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/service"
	"socialmedia_api/internal/validation"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService  *service.UserService
	authService  *service.AuthService
	mediaService *service.MediaService // nil when object storage is not configured
	config       *config.Config
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, authService *service.AuthService, mediaService *service.MediaService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		mediaService: mediaService,
		config:       cfg,
	}
}

// Register handles POST /auth/register as multipart/form-data with an
// optional avatar. Without one the configured default avatar is used.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		return
	}
	if err := parseMultipart(w, r); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	req := model.RegisterRequest{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
		Bio:      r.FormValue("bio"),
	}
	if err := validation.ValidateStruct(&req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	upload, err := uploadAvatar(r, h.mediaService)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if upload != nil {
		req.AvatarURL = &upload.URL
		req.AvatarKey = &upload.Key
	} else if h.config.DefaultAvatarURL != "" && h.config.DefaultAvatarKey != "" {
		req.AvatarURL = &h.config.DefaultAvatarURL
		req.AvatarKey = &h.config.DefaultAvatarKey
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if upload != nil {
			discardAvatar(r.Context(), h.mediaService, &upload.Key)
		}
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.Header.Get("User-Agent"), clientIP(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.LoginResponse{
		User:         user,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	tokenPair, _, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.Header.Get("User-Agent"), clientIP(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenPair)
}

// Logout handles POST /auth/logout. An unknown token still logs out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken)
	if err != nil && !errors.Is(err, model.ErrRefreshTokenNotFound) {
		httputil.WriteServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "logged out")
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "logged out from all devices")
}

// clientIP prefers proxy headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
