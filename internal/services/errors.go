package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services and mapped to HTTP statuses by the
// handler layer.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionEnded         = errors.New("session has ended")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrInvalidJoinCode  = errors.New("invalid join code")
	ErrCodeGeneration   = errors.New("could not allocate a unique join code")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDrawNotAllowed   = errors.New("draw permission required")

	ErrChatDisabled   = errors.New("chat is disabled for this session")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")

	ErrNoImageData = errors.New("no image data provided")
	ErrNoSnapshot  = errors.New("session has no saved snapshot")

	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")
)

// PermissionError carries the denied action for logging; it unwraps to
// ErrPermissionDenied so handlers map it uniformly.
type PermissionError struct {
	UserID    string
	SessionID string
	Resource  string
	Action    string
	Reason    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s",
		e.UserID, e.Action, e.Resource, e.SessionID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

func NewPermissionError(userID, sessionID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:    userID,
		SessionID: sessionID,
		Resource:  resource,
		Action:    action,
		Reason:    reason,
	}
}
