package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/storage"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Base URL for join links and QR codes
	PublicURL string

	// Topic all domain events are published to
	EventTopic string

	// Global settings
	DefaultTimeout time.Duration
}

// ServiceManagerDeps bundles the external dependencies every service draws on.
type ServiceManagerDeps struct {
	DB         *gorm.DB
	Repo       repositories.Repository
	Store      storage.ObjectStore
	Publisher  events.EventPublisher
	Validator  *validator.Validator
	Logger     *slog.Logger
	ClassCount ClassCountProvider
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceManagerDeps
	config ServiceManagerConfig

	// Service instances
	sessionService      SessionService
	participantService  ParticipantService
	permissionService   PermissionService
	snapshotService     SnapshotService
	chatService         ChatService
	notificationService NotificationService
	uploadService       UploadService
	dashboardService    DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceManagerDeps, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps ServiceManagerDeps, publicURL, eventTopic string) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
		PublicURL:          publicURL,
		EventTopic:         eventTopic,
		DefaultTimeout:     30 * time.Second,
	}

	return NewServiceManager(deps, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	d := sm.deps
	publicURL := sm.config.PublicURL
	topic := sm.config.EventTopic

	sm.sessionService = NewSessionService(d.Repo, d.Store, d.Publisher, d.Validator, d.Logger, publicURL, topic)
	sm.deps.Logger.Info("Session service initialized")

	sm.participantService = NewParticipantService(d.Repo, d.Publisher, d.Validator, d.Logger, publicURL, topic)
	sm.deps.Logger.Info("Participant service initialized")

	sm.permissionService = NewPermissionService(d.Repo, d.Publisher, d.Validator, d.Logger, publicURL, topic)
	sm.deps.Logger.Info("Permission service initialized")

	sm.snapshotService = NewSnapshotService(d.Repo, d.Store, d.Publisher, d.Validator, d.Logger, topic)
	sm.deps.Logger.Info("Snapshot service initialized")

	sm.chatService = NewChatService(d.Repo, d.Publisher, d.Validator, d.Logger, topic)
	sm.deps.Logger.Info("Chat service initialized")

	sm.notificationService = NewNotificationService(d.Repo, d.Publisher, d.Validator, d.Logger, topic)
	sm.deps.Logger.Info("Notification service initialized")

	sm.uploadService = NewUploadService(d.Repo, d.Store, d.Publisher, d.Logger, topic)
	sm.deps.Logger.Info("Upload service initialized")

	sm.dashboardService = NewDashboardService(d.Repo, d.ClassCount, d.Logger, publicURL)
	sm.deps.Logger.Info("Dashboard service initialized")

	return nil
}

// Service getters

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Participant() ParticipantService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.participantService
}

func (sm *serviceManager) Permission() PermissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.permissionService
}

func (sm *serviceManager) Snapshot() SnapshotService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.snapshotService
}

func (sm *serviceManager) Chat() ChatService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.chatService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationService
}

func (sm *serviceManager) Upload() UploadService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.uploadService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.dashboardService
}

// HealthCheck verifies the manager and its dependencies are usable
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown releases broker and database handles
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Warn("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down")

	return nil
}
