package repositories

import "context"

// Repository aggregates the per-entity repositories behind one handle.
type Repository interface {
	// Whiteboard domain
	Session() SessionRepository
	Participant() ParticipantRepository

	// Chat domain
	ChatRoom() ChatRoomRepository
	Message() MessageRepository

	// Announcements
	Notification() NotificationRepository

	// Attachments
	Upload() UploadRepository

	// User domain (read-only; identity is owned by Casdoor)
	User() UserRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
