package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type ParticipantHandler struct {
	BaseHandler
	participantService services.ParticipantService
	validator          *validator.Validator
}

func NewParticipantHandler(
	participantService services.ParticipantService,
	validator *validator.Validator,
	logger utils.Logger,
) *ParticipantHandler {
	return &ParticipantHandler{
		BaseHandler:        NewBaseHandler(logger),
		participantService: participantService,
		validator:          validator,
	}
}

// JoinSession redeems a join code
// @Summary Join session
// @Description Joins the caller to the session behind the code; rejoining is idempotent
// @Tags participants
// @Accept json
// @Produce json
// @Param body body services.JoinSessionRequest true "Join code"
// @Success 200 {object} services.JoinResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/join [post]
func (h *ParticipantHandler) JoinSession(c *gin.Context) {
	var req services.JoinSessionRequest
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

	h.LogRequest(c, "Joining session", "code", req.Code)

	resp, err := h.participantService.JoinByCode(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// ListParticipants lists the session roster
// @Summary List participants
// @Description Lists the participants of a session in join order
// @Tags participants
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} services.ParticipantResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/participants [get]
func (h *ParticipantHandler) ListParticipants(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	participants, err := h.participantService.ListParticipants(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, participants)
}

// RecordStroke bumps the caller's stroke counter
// @Summary Record stroke
// @Description Records one drawing stroke by the caller; requires draw permission
// @Tags participants
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/strokes [post]
func (h *ParticipantHandler) RecordStroke(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.participantService.RecordStroke(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Stroke recorded"})
}
