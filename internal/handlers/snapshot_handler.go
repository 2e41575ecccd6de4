package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type SnapshotHandler struct {
	BaseHandler
	snapshotService services.SnapshotService
	validator       *validator.Validator
}

func NewSnapshotHandler(
	snapshotService services.SnapshotService,
	validator *validator.Validator,
	logger utils.Logger,
) *SnapshotHandler {
	return &SnapshotHandler{
		BaseHandler:     NewBaseHandler(logger),
		snapshotService: snapshotService,
		validator:       validator,
	}
}

// SaveSnapshot persists the current canvas
// @Summary Save snapshot
// @Description Stores the canvas image as a new versioned snapshot object; owner only
// @Tags snapshots
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body services.SnapshotSaveRequest true "Canvas as base64 data URL"
// @Success 200 {object} services.SnapshotResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/snapshot [post]
func (h *SnapshotHandler) SaveSnapshot(c *gin.Context) {
	var req services.SnapshotSaveRequest
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

	h.LogRequest(c, "Saving snapshot", "session_id", c.Param("id"))

	resp, err := h.snapshotService.SaveSnapshot(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportPDF downloads the snapshot as a PDF document
// @Summary Export snapshot as PDF
// @Description Flattens the latest snapshot onto an A4 page and streams the PDF
// @Tags snapshots
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/export/pdf [get]
func (h *SnapshotHandler) ExportPDF(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.snapshotService.ExportPDF(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.streamExport(c, result)
}

// ExportImage downloads the snapshot as stored
// @Summary Export snapshot image
// @Description Streams the latest snapshot object in its original format
// @Tags snapshots
// @Produce png
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/export/image [get]
func (h *SnapshotHandler) ExportImage(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.snapshotService.ExportRaw(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.streamExport(c, result)
}

// GetOfflineView returns the saved snapshot reference
// @Summary Offline view
// @Description Returns the saved snapshot reference for offline replay
// @Tags snapshots
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SnapshotResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/offline [get]
func (h *SnapshotHandler) GetOfflineView(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	resp, err := h.snapshotService.OfflineView(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
