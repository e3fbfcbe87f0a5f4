package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/http/response"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

type NotificationHandler struct {
	log           *logger.Logger
	notifications services.NotificationService
	// pollSeconds is the interval clients are told to poll the unread count at.
	pollSeconds int
}

func NewNotificationHandler(log *logger.Logger, notifications services.NotificationService, pollSeconds int) *NotificationHandler {
	if pollSeconds <= 0 {
		pollSeconds = 30
	}
	return &NotificationHandler{
		log:           log.With("handler", "NotificationHandler"),
		notifications: notifications,
		pollSeconds:   pollSeconds,
	}
}

func callerGM(c *gin.Context) uuid.UUID {
	rd := caller(c)
	if rd == nil {
		return uuid.Nil
	}
	if rd.GMID == nil {
		// The service turns a nil GM into a permission error.
		return uuid.Nil
	}
	return *rd.GMID
}

// GET /api/notifications?limit=&offset=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	gmID := callerGM(c)
	if c.Writer.Written() {
		return
	}
	page, err := h.notifications.List(c.Request.Context(), gmID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		fail(c, h.log, "ListNotifications failed", err, "gm_id", gmID)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	gmID := callerGM(c)
	if c.Writer.Written() {
		return
	}
	n, err := h.notifications.UnreadCount(c.Request.Context(), gmID)
	if err != nil {
		fail(c, h.log, "UnreadCount failed", err, "gm_id", gmID)
		return
	}
	response.RespondOK(c, gin.H{"unread_count": n, "poll_interval_seconds": h.pollSeconds})
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	gmID := callerGM(c)
	if c.Writer.Written() {
		return
	}
	id, ok := uuidParam(c, "id", "invalid_notification_id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), gmID, id); err != nil {
		fail(c, h.log, "MarkRead failed", err, "gm_id", gmID, "notification_id", id)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	gmID := callerGM(c)
	if c.Writer.Written() {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), gmID)
	if err != nil {
		fail(c, h.log, "MarkAllRead failed", err, "gm_id", gmID)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
