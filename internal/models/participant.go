package models

import (
	"time"
)

// Participant is the membership and permission state of one user within one
// session. Rows are never deleted while the session exists; re-joining only
// refreshes LastActive.
type Participant struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"not null;size:36;uniqueIndex:idx_participants_session_user"`
	UserID    string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_participants_session_user"`

	// Draw permission. The session owner is implicitly draw-capable
	// regardless of this flag.
	CanDraw bool `json:"can_draw" gorm:"not null;default:false"`

	StrokesCount uint `json:"strokes_count" gorm:"not null;default:0"`
	UploadsCount uint `json:"uploads_count" gorm:"not null;default:0"`

	JoinedAt   time.Time  `json:"joined_at" gorm:"autoCreateTime"`
	LastActive *time.Time `json:"last_active"`

	Session Session `json:"-" gorm:"foreignKey:SessionID"`
	User    User    `json:"user" gorm:"foreignKey:UserID"`
}

func (Participant) TableName() string {
	return "participants"
}
