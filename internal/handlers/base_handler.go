package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	fieldvalidator "github.com/go-playground/validator/v10"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

// ErrorResponse is the error envelope every handler returns
type ErrorResponse struct {
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps successful responses that carry metadata
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler provides shared helpers for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs a request-scoped line with handler context
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
	logger.Info(msg, args...)
}

// parseIDParam parses a numeric path parameter. On failure it writes a 400
// response and returns 0; callers must return immediately when they see 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// requireUserID pulls the authenticated user ID set by the auth middleware.
// Writes a 401 and returns false when it is missing.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return id, true
}

// exportChunkSize is the buffer used when streaming export artifacts.
const exportChunkSize = 64 * 1024

// streamExport writes the artifact in fixed-size chunks. A write failure
// means the client went away mid-download; that is not a server error.
func (h *BaseHandler) streamExport(c *gin.Context, result *services.ExportResult) {
	defer result.Reader.Close()

	c.Header("Content-Type", result.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Status(http.StatusOK)

	buf := make([]byte, exportChunkSize)
	if _, err := io.CopyBuffer(c.Writer, result.Reader, buf); err != nil {
		logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
		logger.Debug("Export stream interrupted", "error", err)
	}
}

// handleServiceError maps service errors to HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Details: verrs,
		})
		return
	}

	var fieldErrs fieldvalidator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Details: validator.ToValidationErrors(fieldErrs),
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrInvalidJoinCode),
		errors.Is(err, services.ErrNoSnapshot):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrDrawNotAllowed),
		errors.Is(err, services.ErrChatDisabled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrSessionEnded),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrNoImageData),
		errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrCodeGeneration):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})

	default:
		logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
		logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
