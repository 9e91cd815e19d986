package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/notification"
)

// ListNotifications handles GET /api/notifications?limit=.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'"})
			return
		}
		limit = v
	}
	notifications, err := h.store.ListUserNotifications(c.Request.Context(), mw.UserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func notificationIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("notification_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return 0, false
	}
	return id, true
}

// MarkNotificationDelivered handles POST /api/notifications/:notification_id/delivered.
// Clients call it when an out-of-band channel confirms receipt.
func (h *Handler) MarkNotificationDelivered(c *gin.Context) {
	id, ok := notificationIDParam(c)
	if !ok {
		return
	}
	if err := h.store.MarkNotificationDelivered(c.Request.Context(), id, mw.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkNotificationRead handles POST /api/notifications/:notification_id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := notificationIDParam(c)
	if !ok {
		return
	}
	if err := h.store.MarkNotificationRead(c.Request.Context(), id, mw.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type announcementRequest struct {
	Title   string  `json:"title" binding:"required"`
	Body    string  `json:"body" binding:"required"`
	UserIDs []int64 `json:"userIds" binding:"required,min=1"`
}

// CreateAnnouncement handles POST /api/announcements: a broadcast notice
// to the given audience. The audience list comes from the caller because
// user accounts live outside this service.
func (h *Handler) CreateAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notices := make([]*model.Notification, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		notices = append(notices, notification.Announcement(
			h.methodFor(c.Request.Context(), userID), userID, req.Title, req.Body))
	}
	if err := h.store.CreateNotifications(c.Request.Context(), notices); err != nil {
		writeError(c, err)
		return
	}
	for _, n := range notices {
		select {
		case h.pool.Jobs() <- n.ID:
		default:
		}
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(notices)})
}

type putSettingsRequest struct {
	NotificationsEnabled *bool                 `json:"notificationsEnabled" binding:"required"`
	DefaultMethod        *model.DeliveryMethod `json:"defaultMethod"`
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.GetUserSettings(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	method := model.MethodInApp
	if req.DefaultMethod != nil {
		switch *req.DefaultMethod {
		case model.MethodEmail, model.MethodSMS, model.MethodPush, model.MethodInApp:
			method = *req.DefaultMethod
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown delivery method"})
			return
		}
	}

	settings := &model.UserSettings{
		UserID:               mw.UserID(c),
		NotificationsEnabled: *req.NotificationsEnabled,
		DefaultMethod:        method,
	}
	if err := h.store.PutUserSettings(c.Request.Context(), settings); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
