package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/cache"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type dashboardRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, redisClient *redis.Client) repositories.DashboardRepository {
	return &dashboardRepository{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== PARTICIPANT ACTIVITY =====

// GetParticipantActivity aggregates per-participant counters for one session.
// Uploads and messages are counted in correlated subqueries so a participant
// with no activity still shows up with zeros.
func (r *dashboardRepository) GetParticipantActivity(ctx context.Context, tx *gorm.DB, sessionID string) ([]repositories.ParticipantActivity, error) {
	db := r.getDB(tx)

	var rows []repositories.ParticipantActivity

	err := db.WithContext(ctx).
		Table("participants").
		Select("participants.user_id, "+
			"users.full_name, "+
			"participants.can_draw, "+
			"participants.strokes_count, "+
			"participants.joined_at, "+
			"(SELECT COUNT(*) FROM uploaded_files WHERE uploaded_files.session_id = participants.session_id AND uploaded_files.uploader_id = participants.user_id) as upload_count, "+
			"(SELECT MAX(uploaded_at) FROM uploaded_files WHERE uploaded_files.session_id = participants.session_id AND uploaded_files.uploader_id = participants.user_id) as last_upload, "+
			"(SELECT COUNT(*) FROM messages JOIN chat_rooms ON chat_rooms.id = messages.room_id WHERE chat_rooms.session_id = participants.session_id AND messages.sender_id = participants.user_id) as message_count, "+
			"(SELECT MAX(timestamp) FROM messages JOIN chat_rooms ON chat_rooms.id = messages.room_id WHERE chat_rooms.session_id = participants.session_id AND messages.sender_id = participants.user_id) as last_message").
		Joins("LEFT JOIN users ON users.id = participants.user_id").
		Where("participants.session_id = ?", sessionID).
		Order("participants.joined_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get participant activity: %w", err)
	}

	return rows, nil
}

// ===== OWNER OVERVIEW =====

func (r *dashboardRepository) GetOwnerStats(ctx context.Context, tx *gorm.DB, ownerID string) (*repositories.OwnerStats, error) {
	db := r.getDB(tx)

	cacheKey := fmt.Sprintf("owner:%s:overview", ownerID)
	var stats repositories.OwnerStats

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var fresh repositories.OwnerStats

		if err := db.WithContext(ctx).
			Model(&models.Session{}).
			Where("owner_id = ?", ownerID).
			Count(&fresh.TotalSessions).Error; err != nil {
			return nil, fmt.Errorf("failed to count sessions: %w", err)
		}

		if err := db.WithContext(ctx).
			Model(&models.Session{}).
			Where("owner_id = ? AND is_active = ?", ownerID, true).
			Count(&fresh.ActiveSessions).Error; err != nil {
			return nil, fmt.Errorf("failed to count active sessions: %w", err)
		}

		if err := db.WithContext(ctx).
			Model(&models.Session{}).
			Where("owner_id = ? AND is_saved = ?", ownerID, true).
			Count(&fresh.SavedSessions).Error; err != nil {
			return nil, fmt.Errorf("failed to count saved sessions: %w", err)
		}

		if err := db.WithContext(ctx).
			Model(&models.Participant{}).
			Joins("JOIN sessions ON sessions.id = participants.session_id").
			Where("sessions.owner_id = ?", ownerID).
			Distinct("participants.user_id").
			Count(&fresh.TotalStudents).Error; err != nil {
			return nil, fmt.Errorf("failed to count distinct students: %w", err)
		}

		return &fresh, nil
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *dashboardRepository) GetRecentSessions(ctx context.Context, tx *gorm.DB, ownerID string, limit int) ([]*models.Session, error) {
	db := r.getDB(tx)

	if limit <= 0 {
		limit = 5
	}

	var sessions []*models.Session
	err := db.WithContext(ctx).
		Preload("Participants").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}

	for _, session := range sessions {
		session.ParticipantCount = len(session.Participants)
	}

	return sessions, nil
}

func (r *dashboardRepository) CountActiveSessions(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	db := r.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.Session{}).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}

	return count, nil
}
