package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session is one whiteboard owned by a teacher and joined by students via a
// short code. The snapshot fields track the last persisted canvas image;
// snapshot objects themselves live in object storage under versioned keys and
// are never overwritten.
type Session struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Title       string  `json:"title" gorm:"not null;size:100;index" validate:"required,min=1,max=100"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	OwnerID string `json:"owner_id" gorm:"not null;index;size:255"`

	// Stored uppercase; lookups fold case before comparing.
	JoinCode string `json:"join_code" gorm:"uniqueIndex;not null;size:8"`

	ScheduledFor *time.Time `json:"scheduled_for"`

	// Snapshot / save state. SnapshotKey is the storage key of the latest
	// object so exports and duplication can re-read it without parsing URLs.
	SnapshotURL        *string `json:"snapshot_url" gorm:"size:500"`
	SnapshotKey        *string `json:"-" gorm:"size:255"`
	IsSaved            bool    `json:"is_saved" gorm:"not null;default:false"`
	IsOfflineAvailable bool    `json:"is_offline_available" gorm:"not null;default:false"`

	ChatEnabled bool `json:"chat_enabled" gorm:"not null;default:true"`
	IsActive    bool `json:"is_active" gorm:"not null;default:true;index"`

	// Free-form board settings, duplicated verbatim when a session is copied.
	Settings datatypes.JSON `json:"settings"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Owner        User          `json:"owner" gorm:"foreignKey:OwnerID"`
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:SessionID"`

	ParticipantCount int `json:"participant_count" gorm:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsOwnedBy reports session ownership for permission checks.
func (s *Session) IsOwnedBy(userID string) bool {
	return s.OwnerID == userID
}
