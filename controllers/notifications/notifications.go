// Package notifications serves the notification list and the live
// notification stream.
package notifications

import (
	"net/http"
	"strconv"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/services"
)

type Handler struct {
	Notifications *services.NotificationService
	Paginator     services.Paginator
}

// GetNotifications - GET /api/notifications?page=&per_page=&unread=true
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	u := authentication.CurrentUser(r.Context())
	pg := h.Paginator.Normalize(respond.Page(r))
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	items, total, err := h.Notifications.List(r.Context(), u.ID, pg, unreadOnly)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	unread, err := h.Notifications.UnreadCount(r.Context(), u.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	body := respond.Paged("notifications", items, total, pg)
	body["unread_count"] = unread
	respond.JSON(w, http.StatusOK, body)
}

// MarkNotificationAsRead - PUT /api/notifications/{id}/read
func (h *Handler) MarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	n, err := h.Notifications.MarkRead(r.Context(), authentication.CurrentUser(r.Context()).ID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, n)
}

// MarkAllAsRead - PUT /api/notifications/read-all
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkAllRead(r.Context(), authentication.CurrentUser(r.Context()).ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

// SendDigest - POST /api/notifications/digest, mails the caller their unread
// notifications.
func (h *Handler) SendDigest(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.SendDigest(r.Context(), authentication.CurrentUser(r.Context()).ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Notification digest sent",
		"count":   n,
	})
}
