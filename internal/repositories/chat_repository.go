package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
)

// ChatRoomRepository manages the lazy one-room-per-session binding.
type ChatRoomRepository interface {
	// GetOrCreateForSession returns the session's room, creating it on first
	// access. Concurrent first accesses resolve to the same row via the
	// unique session index.
	GetOrCreateForSession(ctx context.Context, tx *gorm.DB, session *models.Session) (*models.ChatRoom, error)

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ChatRoom, error)
}

type MessageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, message *models.Message) error

	// ListByRoom returns messages ordered by timestamp ascending.
	ListByRoom(ctx context.Context, tx *gorm.DB, roomID uint, filters MessageFilters) ([]*models.Message, error)

	CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error)
}

type NotificationRepository interface {
	// GetOrCreate inserts the notification unless an identical
	// (recipient, session, content, is_urgent) row already exists, in which
	// case the existing row is returned. The returned bool reports creation.
	GetOrCreate(ctx context.Context, tx *gorm.DB, notification *models.Notification) (bool, error)

	ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID string, filters NotificationFilters) ([]*models.Notification, int64, error)

	// MarkRead stamps read_at for one notification owned by recipientID.
	// Returns the number of rows matched.
	MarkRead(ctx context.Context, tx *gorm.DB, id uint, recipientID string) (int64, error)

	UnreadCount(ctx context.Context, tx *gorm.DB, recipientID string) (int64, error)
}

type UploadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, upload *models.UploadedFile) error
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.UploadedFile, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error)
}
