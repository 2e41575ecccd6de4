package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type ChatHandler struct {
	BaseHandler
	chatService services.ChatService
	validator   *validator.Validator
}

func NewChatHandler(
	chatService services.ChatService,
	validator *validator.Validator,
	logger utils.Logger,
) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		chatService: chatService,
		validator:   validator,
	}
}

// PostMessage appends a chat message
// @Summary Post message
// @Description Posts a message to the session chat; students are blocked while chat is disabled
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body services.PostMessageRequest true "Message content"
// @Success 201 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/messages [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req services.PostMessageRequest
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

	message, err := h.chatService.PostMessage(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// GetTranscript returns the session chat history
// @Summary Get transcript
// @Description Returns the session's messages in chronological order
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Param since query string false "Only messages after this RFC3339 timestamp"
// @Param limit query int false "Maximum messages"
// @Success 200 {object} services.TranscriptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/messages [get]
func (h *ChatHandler) GetTranscript(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var filters repositories.MessageFilters
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid since parameter, expected RFC3339",
				Details: raw,
			})
			return
		}
		filters.Since = &since
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}

	transcript, err := h.chatService.GetTranscript(c.Request.Context(), c.Param("id"), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, transcript)
}
