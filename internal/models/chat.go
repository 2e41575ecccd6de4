package models

import (
	"time"
)

type ChatType string

const (
	ChatTypeSession ChatType = "session"
	ChatTypeGroup   ChatType = "group"
	ChatTypePrivate ChatType = "private"
	ChatTypeComment ChatType = "comment"
)

// MaxMessageLength bounds chat message content after trimming.
const MaxMessageLength = 500

// ChatRoom is the lazily created chat surface of a session. Exactly one
// "session" room exists per session.
type ChatRoom struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	Name      string   `json:"name" gorm:"not null;size:255"`
	ChatType  ChatType `json:"chat_type" gorm:"not null;default:session;size:20"`
	SessionID *string  `json:"session_id" gorm:"size:36;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`

	Session  *Session  `json:"-" gorm:"foreignKey:SessionID"`
	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:RoomID"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type Message struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	RoomID   uint   `json:"room_id" gorm:"not null;index"`
	SenderID string `json:"sender_id" gorm:"not null;size:255"`
	Content  string `json:"content" gorm:"not null;size:500"`

	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`

	Room   ChatRoom `json:"-" gorm:"foreignKey:RoomID"`
	Sender User     `json:"sender" gorm:"foreignKey:SenderID"`
}

func (Message) TableName() string {
	return "messages"
}
