package models

import (
	"time"
)

// Notification is one announcement delivered to one user. The composite
// unique index makes delivery idempotent: sending the same announcement twice
// to the same recipient resolves to the existing row instead of a duplicate.
type Notification struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	RecipientID string `json:"recipient_id" gorm:"not null;size:255;index;uniqueIndex:idx_notifications_dedup"`

	// SessionID must be set on every notification: Postgres treats NULLs in
	// a unique index as distinct, so a NULL session would bypass the dedup.
	SessionID *string `json:"session_id" gorm:"size:36;uniqueIndex:idx_notifications_dedup"`
	Content   string  `json:"content" gorm:"not null;size:500;uniqueIndex:idx_notifications_dedup"`
	IsUrgent  bool    `json:"is_urgent" gorm:"not null;default:false;uniqueIndex:idx_notifications_dedup"`

	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	ReadAt    *time.Time `json:"read_at"`

	Recipient User     `json:"-" gorm:"foreignKey:RecipientID"`
	Session   *Session `json:"-" gorm:"foreignKey:SessionID"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
