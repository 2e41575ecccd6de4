package validator

import (
	"time"
)

// SessionCreateRequest represents the request structure for creating sessions
type SessionCreateRequest struct {
	Title        string                 `json:"title" validate:"required,session_title"`
	Description  *string                `json:"description" validate:"omitempty,max=1000"`
	ScheduledFor *time.Time             `json:"scheduled_for" validate:"omitempty,future_date"`
	Settings     map[string]interface{} `json:"settings"`
}

// SessionUpdateRequest represents the request structure for updating sessions
type SessionUpdateRequest struct {
	Title        *string                `json:"title" validate:"omitempty,session_title"`
	Description  *string                `json:"description" validate:"omitempty,max=1000"`
	ScheduledFor *time.Time             `json:"scheduled_for" validate:"omitempty,future_date"`
	Settings     map[string]interface{} `json:"settings"`
}

// JoinSessionRequest carries the join code a student typed or scanned
type JoinSessionRequest struct {
	Code string `json:"code" validate:"required,join_code"`
}

// ToggleDrawRequest sets one participant's draw permission to an exact value
type ToggleDrawRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	CanDraw *bool  `json:"can_draw" validate:"required"`
}

// PresenceSyncRequest reports which participants are currently connected
type PresenceSyncRequest struct {
	PresentUserIDs []string `json:"present_user_ids"`
}

// PostMessageRequest represents one chat message submission
type PostMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// AnnouncementRequest broadcasts a notification to all participants
type AnnouncementRequest struct {
	Content  string `json:"content" validate:"required,max=500"`
	IsUrgent bool   `json:"is_urgent"`
}

// SnapshotSaveRequest carries the whiteboard canvas as a base64 data URL
type SnapshotSaveRequest struct {
	ImageData string `json:"image_data" validate:"required"`
}

// SessionDuplicateRequest creates a copy of a saved session
type SessionDuplicateRequest struct {
	Title *string `json:"title" validate:"omitempty,session_title"`
}
