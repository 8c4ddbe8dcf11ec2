package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/adiwira/gudang/internal/events"
	"github.com/adiwira/gudang/internal/model"
	"github.com/adiwira/gudang/internal/store"
)

// NotificationsHandler handles the notification feed endpoints.
type NotificationsHandler struct {
	DB  *sql.DB
	Bus *events.Bus
}

// List handles GET /api/notifications. ?unread=true narrows to unread.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := store.ListNotifications(r.Context(), h.DB, unreadOnly)
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, notifications)
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := store.MarkNotificationRead(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to mark notification read", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}

	h.Bus.Publish("notifications")
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles PUT /api/notifications/read.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := store.MarkAllNotificationsRead(r.Context(), h.DB); err != nil {
		slog.Error("failed to mark notifications read", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}

	h.Bus.Publish("notifications")
	w.WriteHeader(http.StatusNoContent)
}
