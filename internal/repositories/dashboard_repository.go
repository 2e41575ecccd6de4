package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
)

// DashboardRepository interface for dashboard aggregation queries.
type DashboardRepository interface {
	// GetParticipantActivity aggregates, per participant of the session:
	// stroke count, upload count, message count and the timestamps needed to
	// derive "last active".
	GetParticipantActivity(ctx context.Context, tx *gorm.DB, sessionID string) ([]ParticipantActivity, error)

	// Owner overview
	GetOwnerStats(ctx context.Context, tx *gorm.DB, ownerID string) (*OwnerStats, error)
	GetRecentSessions(ctx context.Context, tx *gorm.DB, ownerID string, limit int) ([]*models.Session, error)

	CountActiveSessions(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
}
