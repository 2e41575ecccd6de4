package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every published message travels in
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Event types emitted by the whiteboard service
const (
	EventSessionCreated    = "session.created"
	EventSessionEnded      = "session.ended"
	EventParticipantJoined = "session.participant_joined"
	EventDrawToggled       = "session.draw_toggled"
	EventPresenceSwept     = "session.presence_swept"
	EventSnapshotSaved     = "session.snapshot_saved"
	EventChatToggled       = "session.chat_toggled"
	EventMessagePosted     = "chat.message_posted"
	EventAnnouncementSent  = "notification.announcement_sent"
	EventFileUploaded      = "session.file_uploaded"
)

const (
	eventSource  = "whiteboard-service"
	eventVersion = "1.0"
)

// NewEvent builds an envelope with ID, source and timestamp filled in
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}
