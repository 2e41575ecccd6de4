package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type NotificationPostgreSQL struct {
	db *gorm.DB
}

func NewNotificationPostgreSQL(db *gorm.DB) repositories.NotificationRepository {
	return &NotificationPostgreSQL{db: db}
}

func (n *NotificationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return n.db
}

// GetOrCreate inserts the notification unless an identical
// (recipient, session, content, is_urgent) row exists. DO NOTHING on the
// dedup index makes repeated announcements a no-op rather than spam.
func (n *NotificationPostgreSQL) GetOrCreate(ctx context.Context, tx *gorm.DB, notification *models.Notification) (bool, error) {
	result := n.getDB(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "recipient_id"},
			{Name: "session_id"},
			{Name: "content"},
			{Name: "is_urgent"},
		},
		DoNothing: true,
	}).Create(notification)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create notification: %w", result.Error)
	}

	created := result.RowsAffected > 0
	if !created {
		// Load the surviving duplicate so callers always get a real row
		var existing models.Notification
		err := n.getDB(tx).WithContext(ctx).
			Where("recipient_id = ? AND session_id = ? AND content = ? AND is_urgent = ?",
				notification.RecipientID, notification.SessionID, notification.Content, notification.IsUrgent).
			First(&existing).Error
		if err != nil {
			return false, fmt.Errorf("failed to load existing notification: %w", err)
		}
		*notification = existing
	}

	return created, nil
}

// ListByRecipient returns notifications newest first with optional filters
func (n *NotificationPostgreSQL) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	db := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID)

	if filters.UnreadOnly {
		db = db.Where("read_at IS NULL")
	}
	if filters.SessionID != nil {
		db = db.Where("session_id = ?", *filters.SessionID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if filters.Limit > 0 {
		db = db.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		db = db.Offset(filters.Offset)
	}

	var notifications []*models.Notification
	if err := db.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead stamps read_at for a notification owned by recipientID. The
// ownership check lives in the WHERE clause, not a prior read.
func (n *NotificationPostgreSQL) MarkRead(ctx context.Context, tx *gorm.DB, id uint, recipientID string) (int64, error) {
	result := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (n *NotificationPostgreSQL) UnreadCount(ctx context.Context, tx *gorm.DB, recipientID string) (int64, error) {
	var count int64
	err := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
