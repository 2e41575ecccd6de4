package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CWB-F-2025/whiteboard-service/internal/cache"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type ParticipantPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewParticipantPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ParticipantRepository {
	return &ParticipantPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (p *ParticipantPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// GetOrCreate joins a user to a session idempotently. The insert rides the
// (session_id, user_id) unique index with DO NOTHING, so two racing joins
// both land on the same row; the loser only gets last_active refreshed.
func (p *ParticipantPostgreSQL) GetOrCreate(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, bool, error) {
	db := p.getDB(tx).WithContext(ctx)
	now := time.Now()

	participant := models.Participant{
		SessionID:  sessionID,
		UserID:     userID,
		LastActive: &now,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&participant)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to upsert participant: %w", result.Error)
	}
	created := result.RowsAffected > 0

	if !created {
		if err := db.Model(&models.Participant{}).
			Where("session_id = ? AND user_id = ?", sessionID, userID).
			Update("last_active", now).Error; err != nil {
			return nil, false, fmt.Errorf("failed to refresh participant activity: %w", err)
		}
	}

	var existing models.Participant
	if err := db.Preload("User").
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load participant after upsert: %w", err)
	}

	cache.InvalidateParticipantCache(ctx, p.cacheManager, sessionID)

	return &existing, created, nil
}

// GetBySessionAndUser retrieves one membership row
func (p *ParticipantPostgreSQL) GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, error) {
	var participant models.Participant
	err := p.getDB(tx).WithContext(ctx).
		Preload("User").
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &participant, nil
}

// ListBySession retrieves all participants of a session ordered by join time
func (p *ParticipantPostgreSQL) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := p.getDB(tx).WithContext(ctx).
		Preload("User").
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// ListByUser retrieves all memberships of a user, newest first
func (p *ParticipantPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := p.getDB(tx).WithContext(ctx).
		Preload("Session").
		Preload("Session.Owner").
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return participants, nil
}

// SetCanDraw sets the draw flag to exactly canDraw for one membership.
// Only that column is written, so concurrent counter bumps are untouched.
func (p *ParticipantPostgreSQL) SetCanDraw(ctx context.Context, tx *gorm.DB, sessionID, userID string, canDraw bool) (int64, error) {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("can_draw", canDraw)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to set can_draw: %w", result.Error)
	}

	cache.InvalidateParticipantCache(ctx, p.cacheManager, sessionID)

	return result.RowsAffected, nil
}

// RevokeAbsentDraw clears can_draw for every holder of the session that is
// not in presentUserIDs. The whole predicate runs inside the UPDATE, so a
// grant committed after the sweep began does not match and survives.
func (p *ParticipantPostgreSQL) RevokeAbsentDraw(ctx context.Context, tx *gorm.DB, sessionID string, presentUserIDs []string) (int64, error) {
	db := p.getDB(tx).WithContext(ctx).
		Model(&models.Participant{}).
		Where("session_id = ? AND can_draw = ?", sessionID, true)

	// An empty present set revokes everyone; NOT IN () is invalid SQL
	if len(presentUserIDs) > 0 {
		db = db.Where("user_id NOT IN ?", presentUserIDs)
	}

	result := db.Update("can_draw", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke absent draw permissions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.InvalidateParticipantCache(ctx, p.cacheManager, sessionID)
	}

	return result.RowsAffected, nil
}

// IncrementStrokes bumps strokes_count and refreshes last_active in a single
// statement so racing strokes never lose an increment.
func (p *ParticipantPostgreSQL) IncrementStrokes(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error) {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]interface{}{
			"strokes_count": gorm.Expr("strokes_count + 1"),
			"last_active":   time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to increment strokes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// IncrementUploads bumps uploads_count and refreshes last_active
func (p *ParticipantPostgreSQL) IncrementUploads(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error) {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]interface{}{
			"uploads_count": gorm.Expr("uploads_count + 1"),
			"last_active":   time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to increment uploads: %w", result.Error)
	}
	return result.RowsAffected, nil
}
