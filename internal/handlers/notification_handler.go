package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationService
	validator           *validator.Validator
}

func NewNotificationHandler(
	notificationService services.NotificationService,
	validator *validator.Validator,
	logger utils.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
		validator:           validator,
	}
}

// Announce broadcasts a notification to all participants
// @Summary Send announcement
// @Description Delivers the announcement to every participant; resending is idempotent
// @Tags notifications
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body services.AnnouncementRequest true "Announcement content"
// @Success 200 {object} services.AnnouncementResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/announcements [post]
func (h *NotificationHandler) Announce(c *gin.Context) {
	var req services.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Sending announcement",
		"session_id", c.Param("id"),
		"is_urgent", req.IsUrgent)

	result, err := h.notificationService.Announce(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListNotifications lists the caller's notifications
// @Summary List notifications
// @Description Lists the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Param unread_only query bool false "Only unread notifications"
// @Param session_id query string false "Filter by session"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.NotificationListResponse
// @Failure 401 {object} ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var filters repositories.NotificationFilters
	filters.UnreadOnly, _ = strconv.ParseBool(c.Query("unread_only"))
	if sessionID := c.Query("session_id"); sessionID != "" {
		filters.SessionID = &sessionID
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}

	resp, err := h.notificationService.ListNotifications(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkRead marks one notification as read
// @Summary Mark notification read
// @Description Stamps the read time on one of the caller's notifications
// @Tags notifications
// @Produce json
// @Param id path uint true "Notification ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification marked read"})
}

// UnreadCount returns the caller's unread notification count
// @Summary Unread count
// @Description Returns how many unread notifications the caller has
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
