package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type ChatRoomPostgreSQL struct {
	db *gorm.DB
}

func NewChatRoomPostgreSQL(db *gorm.DB) repositories.ChatRoomRepository {
	return &ChatRoomPostgreSQL{db: db}
}

func (c *ChatRoomPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

// GetOrCreateForSession returns the session's room, creating it lazily on
// first access. The unique session index collapses concurrent first accesses
// onto one row.
func (c *ChatRoomPostgreSQL) GetOrCreateForSession(ctx context.Context, tx *gorm.DB, session *models.Session) (*models.ChatRoom, error) {
	db := c.getDB(tx).WithContext(ctx)

	room := models.ChatRoom{
		Name:      fmt.Sprintf("Session: %s", session.Title),
		ChatType:  models.ChatTypeSession,
		SessionID: &session.ID,
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&room).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat room: %w", err)
	}

	var existing models.ChatRoom
	if err := db.Where("session_id = ?", session.ID).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load chat room: %w", err)
	}

	return &existing, nil
}

func (c *ChatRoomPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := c.getDB(tx).WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get chat room: %w", err)
	}
	return &room, nil
}

type MessagePostgreSQL struct {
	db *gorm.DB
}

func NewMessagePostgreSQL(db *gorm.DB) repositories.MessageRepository {
	return &MessagePostgreSQL{db: db}
}

func (m *MessagePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

func (m *MessagePostgreSQL) Create(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	if err := m.getDB(tx).WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByRoom returns messages in timestamp order so transcripts replay the
// way the room saw them.
func (m *MessagePostgreSQL) ListByRoom(ctx context.Context, tx *gorm.DB, roomID uint, filters repositories.MessageFilters) ([]*models.Message, error) {
	db := m.getDB(tx).WithContext(ctx).
		Preload("Sender").
		Where("room_id = ?", roomID)

	if filters.Since != nil {
		db = db.Where("timestamp > ?", *filters.Since)
	}
	if filters.Limit > 0 {
		db = db.Limit(filters.Limit)
	}

	var messages []*models.Message
	if err := db.Order("timestamp ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (m *MessagePostgreSQL) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Message{}).
		Joins("JOIN chat_rooms ON chat_rooms.id = messages.room_id").
		Where("chat_rooms.session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count session messages: %w", err)
	}
	return count, nil
}
