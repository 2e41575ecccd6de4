package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type PermissionHandler struct {
	BaseHandler
	permissionService services.PermissionService
	validator         *validator.Validator
}

func NewPermissionHandler(
	permissionService services.PermissionService,
	validator *validator.Validator,
	logger utils.Logger,
) *PermissionHandler {
	return &PermissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		permissionService: permissionService,
		validator:         validator,
	}
}

// ToggleDraw sets one participant's draw permission
// @Summary Toggle draw permission
// @Description Sets a participant's draw flag to exactly the requested value; owner only
// @Tags permissions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body services.ToggleDrawRequest true "Target user and value"
// @Success 200 {object} services.ParticipantResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/permissions/draw [put]
func (h *PermissionHandler) ToggleDraw(c *gin.Context) {
	var req services.ToggleDrawRequest
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

	h.LogRequest(c, "Toggling draw permission",
		"session_id", c.Param("id"),
		"target_user", req.UserID)

	participant, err := h.permissionService.ToggleDraw(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

// SyncPresence reconciles draw permissions against the present set
// @Summary Sync presence
// @Description Revokes draw permission from every absent holder; owner only
// @Tags permissions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body services.PresenceSyncRequest true "Currently connected user IDs"
// @Success 200 {object} services.PresenceSyncResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/permissions/presence-sync [post]
func (h *PermissionHandler) SyncPresence(c *gin.Context) {
	var req services.PresenceSyncRequest
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

	resp, err := h.permissionService.SyncPresence(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ToggleChat flips the session-wide chat switch
// @Summary Toggle chat
// @Description Flips chat on or off for the whole session; owner only
// @Tags permissions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/chat/toggle [put]
func (h *PermissionHandler) ToggleChat(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.permissionService.ToggleChat(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
