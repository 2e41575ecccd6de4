package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CWB-F-2025/whiteboard-service/internal/config"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/services"
	"github.com/CWB-F-2025/whiteboard-service/internal/utils"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type HandlerManager struct {
	sessionHandler      *SessionHandler
	participantHandler  *ParticipantHandler
	permissionHandler   *PermissionHandler
	snapshotHandler     *SnapshotHandler
	chatHandler         *ChatHandler
	notificationHandler *NotificationHandler
	uploadHandler       *UploadHandler
	dashboardHandler    *DashboardHandler
	userHandler         *UserHandler
	authMiddleware      *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		sessionHandler:      NewSessionHandler(serviceManager.Session(), validator, logger),
		participantHandler:  NewParticipantHandler(serviceManager.Participant(), validator, logger),
		permissionHandler:   NewPermissionHandler(serviceManager.Permission(), validator, logger),
		snapshotHandler:     NewSnapshotHandler(serviceManager.Snapshot(), validator, logger),
		chatHandler:         NewChatHandler(serviceManager.Chat(), validator, logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), validator, logger),
		uploadHandler:       NewUploadHandler(serviceManager.Upload(), logger),
		dashboardHandler:    NewDashboardHandler(serviceManager.Dashboard(), logger),
		userHandler:         NewUserHandler(userRepo, logger),
		authMiddleware:      authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		teacherOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher)

		// Session lifecycle
		sessions := v1.Group("/sessions")
		{
			// Create/modify sessions - Teachers and Admins only
			sessions.POST("", teacherOnly, hm.sessionHandler.CreateSession)
			sessions.PUT("/:id", teacherOnly, hm.sessionHandler.UpdateSession)
			sessions.DELETE("/:id", teacherOnly, hm.sessionHandler.EndSession)
			sessions.POST("/:id/duplicate", teacherOnly, hm.sessionHandler.DuplicateSession)

			// Join flow - all authenticated users
			sessions.POST("/join", hm.participantHandler.JoinSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/:id/qr", hm.sessionHandler.GetJoinQRCode)

			// Roster and drawing
			sessions.GET("/:id/participants", hm.participantHandler.ListParticipants)
			sessions.POST("/:id/strokes", hm.participantHandler.RecordStroke)

			// Permission management - owner checks live in the service
			sessions.PUT("/:id/permissions/draw", teacherOnly, hm.permissionHandler.ToggleDraw)
			sessions.POST("/:id/permissions/presence-sync", teacherOnly, hm.permissionHandler.SyncPresence)
			sessions.PUT("/:id/chat/toggle", teacherOnly, hm.permissionHandler.ToggleChat)

			// Snapshots and exports
			sessions.POST("/:id/snapshot", teacherOnly, hm.snapshotHandler.SaveSnapshot)
			sessions.GET("/:id/export/pdf", hm.snapshotHandler.ExportPDF)
			sessions.GET("/:id/export/image", hm.snapshotHandler.ExportImage)
			sessions.GET("/:id/offline", hm.snapshotHandler.GetOfflineView)

			// Chat
			sessions.POST("/:id/messages", hm.chatHandler.PostMessage)
			sessions.GET("/:id/messages", hm.chatHandler.GetTranscript)

			// Announcements
			sessions.POST("/:id/announcements", teacherOnly, hm.notificationHandler.Announce)

			// Uploads
			sessions.POST("/:id/uploads", hm.uploadHandler.UploadFile)
			sessions.GET("/:id/uploads", hm.uploadHandler.ListUploads)

			// Activity
			sessions.GET("/:id/activity", teacherOnly, hm.dashboardHandler.SessionActivity)
			sessions.GET("/:id/activity/export", teacherOnly, hm.dashboardHandler.ExportActivityReport)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", hm.notificationHandler.ListNotifications)
			notifications.GET("/unread-count", hm.notificationHandler.UnreadCount)
			notifications.PUT("/:id/read", hm.notificationHandler.MarkRead)
		}

		// Dashboard routes
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/teacher", teacherOnly, hm.dashboardHandler.TeacherOverview)
			dashboard.GET("/student", hm.dashboardHandler.StudentOverview)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/search", hm.userHandler.SearchUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}
}

// HealthCheck endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "whiteboard-service",
	})
}
