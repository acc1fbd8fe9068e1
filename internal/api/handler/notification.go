package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/notification"
)

// NotificationHandler handles notification history endpoints.
type NotificationHandler struct {
	notifications *notification.Service
	logger        zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// List handles GET /v1/notifications?limit=N.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
				{Field: "limit", Message: "must be an integer", Code: models.CodeInvalid},
			})
			return
		}
		limit = n
	}

	list, err := h.notifications.List(r.Context(), GetUserID(r.Context()), limit)
	if err != nil {
		writeError(w, r, h.logger, err, "list notifications")
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// UnreadCount handles GET /v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "count notifications")
		return
	}
	response.JSON(w, r, http.StatusOK, models.UnreadCount{Count: count})
}

// MarkRead handles PUT /v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkRead(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err, "mark notification read")
		return
	}
	response.JSON(w, r, http.StatusOK, notification.ToAPI(n))
}

// MarkAllRead handles PUT /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notifications.MarkAllRead(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "mark notifications read")
		return
	}
	response.JSON(w, r, http.StatusOK, models.MarkAllReadResult{Updated: updated})
}

// SendTest handles POST /v1/notifications/test - sends a hydration tip to
// the caller's devices.
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.SendTip(r.Context(), GetUserID(r.Context()), notification.TestTip)
	if err != nil {
		writeError(w, r, h.logger, err, "send test notification")
		return
	}
	response.Created(w, r, "/v1/notifications/"+n.ID, notification.ToAPI(n))
}
