package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
)

// maxUploadBytes bounds attachment size at 20 MiB.
const maxUploadBytes = 20 << 20

type UploadHandler struct {
	BaseHandler
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService, logger utils.Logger) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   NewBaseHandler(logger),
		uploadService: uploadService,
	}
}

// UploadFile stores a session attachment
// @Summary Upload file
// @Description Uploads a file onto the session board; students need draw permission
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} services.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /sessions/{id}/uploads [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file field",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File too large",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Could not read uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h.LogRequest(c, "Uploading file",
		"session_id", c.Param("id"),
		"file_name", fileHeader.Filename,
		"size_bytes", fileHeader.Size)

	resp, err := h.uploadService.Upload(c.Request.Context(), c.Param("id"), userID,
		fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListUploads lists the session's attachments
// @Summary List uploads
// @Description Lists the files uploaded to a session, newest first
// @Tags uploads
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} services.UploadResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/uploads [get]
func (h *UploadHandler) ListUploads(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	uploads, err := h.uploadService.ListUploads(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploads)
}
