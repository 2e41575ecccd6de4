package repositories

import (
	"time"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Query      string `json:"query"` // substring match over title and join code
	ActiveOnly bool   `json:"active_only"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	SortBy     string `json:"sort_by"`    // "created_at", "title"
	SortOrder  string `json:"sort_order"` // "asc", "desc"
}

type NotificationFilters struct {
	UnreadOnly bool    `json:"unread_only"`
	SessionID  *string `json:"session_id"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

type MessageFilters struct {
	Since *time.Time `json:"since"`
	Limit int        `json:"limit"`
}

// ===== SHARED RESULT STRUCTS =====

// PresenceSweep is the outcome of one conditional revoke pass over a
// session's participants.
type PresenceSweep struct {
	UpdatedCount int64    `json:"updated_count"`
	Present      []string `json:"present"`
	Absent       []string `json:"absent"`
}

// ParticipantActivity is one row of the teacher dashboard aggregation.
type ParticipantActivity struct {
	UserID       string     `json:"user_id"`
	FullName     string     `json:"full_name"`
	CanDraw      bool       `json:"can_draw"`
	StrokesCount uint       `json:"strokes_count"`
	UploadCount  int64      `json:"upload_count"`
	MessageCount int64      `json:"message_count"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastUpload   *time.Time `json:"last_upload"`
	LastMessage  *time.Time `json:"last_message"`
}

/// LastActive resolves the dashboard's activity timestamp: the latest of the
// last upload, the last message and the join time.
func (a ParticipantActivity) LastActive() time.Time {
	last := a.JoinedAt
	if a.LastUpload != nil && a.LastUpload.After(last) {
		last = *a.LastUpload
	}
	if a.LastMessage != nil && a.LastMessage.After(last) {
		last = *a.LastMessage
	}
	return last
}

type OwnerStats struct {
	TotalSessions  int64 `json:"total_sessions"`
	ActiveSessions int64 `json:"active_sessions"`
	SavedSessions  int64 `json:"saved_sessions"`
	TotalStudents  int64 `json:"total_students"`
}
