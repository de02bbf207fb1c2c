package handler

import (
	"net/http"

	"socialmedia_api/internal/httputil"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Returns the caller's notifications newest first, with the unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	cursor, limit, ok := page(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifService.List(r.Context(), userID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// MarkRead handles POST /notifications/{id}/read
// Only the recipient may mark a notification read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}
	notificationID, ok := pathID(w, r, "notification")
	if !ok {
		return
	}

	if err := h.notifService.MarkRead(r.Context(), userID, notificationID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "notification marked as read")
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	updated, err := h.notifService.MarkAllRead(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{
		"updated": updated,
	})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns the count of unread notifications (for badge display).
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"unread_count": count,
	})
}

// RegisterToken handles POST /devices/token
// Registers a device token for push notifications.
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req model.RegisterTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), userID, req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "device token registered")
}

// RemoveToken handles DELETE /devices/token (e.g. on logout).
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req model.UnregisterTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), userID, req.Token); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "device token removed")
}
