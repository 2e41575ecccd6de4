package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/cache"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Create creates a new session and invalidates owner listings. A join code
// collision surfaces as gorm.ErrDuplicatedKey for the caller to retry.
func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	if err := s.getDB(tx).WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, s.cacheManager.Session, fmt.Sprintf("owner:%s:*", session.OwnerID))
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Session, "list:*")

	return nil
}

// GetByID retrieves a session by ID with caching
func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Session, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var session models.Session

	err := s.cacheManager.Session.CacheOrExecute(ctx, cacheKey, &session, cache.SessionCacheConfig.TTL, func() (interface{}, error) {
		var dbSession models.Session
		err := s.getDB(tx).WithContext(ctx).
			Preload("Owner").
			Where("id = ?", id).
			First(&dbSession).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return &dbSession, nil
	})

	if err != nil {
		return nil, err
	}

	return &session, nil
}

// GetByCode retrieves an active session by its join code. Codes are stored
// uppercase; the lookup normalizes so students can type either case.
func (s *SessionPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Session, error) {
	var session models.Session
	err := s.getDB(tx).WithContext(ctx).
		Preload("Owner").
		Where("join_code = ? AND is_active = ?", strings.ToUpper(code), true).
		First(&session).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}
	return &session, nil
}

// ListByOwner retrieves sessions created by one owner with filtering and pagination
func (s *SessionPostgreSQL) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	db := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("owner_id = ?", ownerID)

	db = s.helpers.ApplySessionFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var sessions []*models.Session
	query := s.helpers.ApplyPaginationAndSort(db, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Participants").Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, session := range sessions {
		session.ParticipantCount = len(session.Participants)
	}

	return sessions, total, nil
}

// Update updates mutable session fields and invalidates cache
func (s *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	if err := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"title":         session.Title,
			"description":   session.Description,
			"scheduled_for": session.ScheduledFor,
			"settings":      session.Settings,
			"updated_at":    session.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	cache.InvalidateSessionCache(ctx, s.cacheManager, session.ID, session.OwnerID)

	return nil
}

// UpdateSnapshot points the session at its newest snapshot object. One
// statement so a concurrent save cannot leave the URL and flags split.
func (s *SessionPostgreSQL) UpdateSnapshot(ctx context.Context, tx *gorm.DB, id, url, key string) error {
	if err := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"snapshot_url":         url,
			"snapshot_key":         key,
			"is_saved":             true,
			"is_offline_available": true,
		}).Error; err != nil {
		return fmt.Errorf("failed to update session snapshot: %w", err)
	}

	cache.SafeDelete(ctx, s.cacheManager.Session, fmt.Sprintf("id:%s", id))

	return nil
}

// SetChatEnabled flips the session-wide chat switch
func (s *SessionPostgreSQL) SetChatEnabled(ctx context.Context, tx *gorm.DB, id string, enabled bool) error {
	if err := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("chat_enabled", enabled).Error; err != nil {
		return fmt.Errorf("failed to set chat enabled: %w", err)
	}

	cache.SafeDelete(ctx, s.cacheManager.Session, fmt.Sprintf("id:%s", id))

	return nil
}

// Deactivate soft-deletes the session. The row stays for history and saved
// snapshots but no longer accepts joins or appears in active listings.
func (s *SessionPostgreSQL) Deactivate(ctx context.Context, tx *gorm.DB, id string) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, s.cacheManager.Session, fmt.Sprintf("id:%s", id))
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Session, "owner:*")

	return nil
}

// ExistsByCode checks whether any session (active or not) holds the code
func (s *SessionPostgreSQL) ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := s.getDB(tx).WithContext(ctx).
		Model(&models.Session{}).
		Where("join_code = ?", strings.ToUpper(code)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return count > 0, nil
}
