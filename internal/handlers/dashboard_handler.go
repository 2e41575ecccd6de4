package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// TeacherOverview returns the teacher dashboard
// @Summary Teacher dashboard
// @Description Session stats, class count and recent sessions for the caller
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.TeacherDashboardResponse
// @Failure 401 {object} ErrorResponse
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) TeacherOverview(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	overview, err := h.dashboardService.TeacherOverview(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// StudentOverview returns the student dashboard
// @Summary Student dashboard
// @Description Joined sessions and unread announcements for the caller
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.StudentDashboardResponse
// @Failure 401 {object} ErrorResponse
// @Router /dashboard/student [get]
func (h *DashboardHandler) StudentOverview(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	overview, err := h.dashboardService.StudentOverview(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// SessionActivity returns per-participant activity for one session
// @Summary Session activity
// @Description Strokes, uploads, messages and last activity per participant; owner only
// @Tags dashboard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} services.ParticipantActivityEntry
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/activity [get]
func (h *DashboardHandler) SessionActivity(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	entries, err := h.dashboardService.SessionActivity(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ExportActivityReport downloads the activity table as a spreadsheet
// @Summary Export session activity
// @Description Streams the per-participant activity table as an xlsx workbook; owner only
// @Tags dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/activity/export [get]
func (h *DashboardHandler) ExportActivityReport(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.dashboardService.ExportActivityReport(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.streamExport(c, result)
}
