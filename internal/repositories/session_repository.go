package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
)

// SessionRepository persists whiteboard sessions. Create reports join-code
// collisions as a conflict error (see IsConflictError) so the service layer
// can regenerate and retry.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.Session) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Session, error)

	// GetByCode matches the join code case-insensitively.
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Session, error)

	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters SessionFilters) ([]*models.Session, int64, error)

	Update(ctx context.Context, tx *gorm.DB, session *models.Session) error

	// UpdateSnapshot points the session at its newest snapshot object and
	// flips the saved/offline flags in a single statement.
	UpdateSnapshot(ctx context.Context, tx *gorm.DB, id, url, key string) error

	SetChatEnabled(ctx context.Context, tx *gorm.DB, id string, enabled bool) error

	// Deactivate soft-deletes: the row survives for history but drops out of
	// registry listings and joins.
	Deactivate(ctx context.Context, tx *gorm.DB, id string) error

	ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error)
}

// ParticipantRepository persists session membership. All mutations are single
// guarded statements; there is no read-modify-write across round trips.
type ParticipantRepository interface {
	// GetOrCreate joins a user to a session idempotently. An existing
	// membership only has last_active refreshed; the returned bool reports
	// whether a new row was created.
	GetOrCreate(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, bool, error)

	GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Participant, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Participant, error)

	// SetCanDraw sets the flag exactly to canDraw for one membership and
	// persists only that column. Returns the number of rows matched.
	SetCanDraw(ctx context.Context, tx *gorm.DB, sessionID, userID string, canDraw bool) (int64, error)

	// RevokeAbsentDraw clears can_draw for every participant of the session
	// that currently holds it and is not in presentUserIDs. The predicate is
	// evaluated at write time, so a grant committed after the sweep started
	// is not clobbered. Returns the number of rows updated.
	RevokeAbsentDraw(ctx context.Context, tx *gorm.DB, sessionID string, presentUserIDs []string) (int64, error)

	// IncrementStrokes bumps strokes_count and refreshes last_active in one
	// statement. Returns the number of rows matched.
	IncrementStrokes(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error)

	IncrementUploads(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error)
}
