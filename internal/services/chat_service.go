package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type chatService struct {
	repo      repositories.Repository
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	eventTopic string
}

// NewChatService creates the session chat service.
func NewChatService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	eventTopic string,
) ChatService {
	return &chatService{
		repo:       repo,
		events:     publisher,
		validator:  v,
		logger:     logger,
		eventTopic: eventTopic,
	}
}

func (s *chatService) PostMessage(ctx context.Context, sessionID string, req *PostMessageRequest, senderID string) (*MessageResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !session.IsActive {
		return nil, ErrSessionEnded
	}

	// The chat switch gates everyone, the owner included.
	if !session.ChatEnabled {
		return nil, ErrChatDisabled
	}

	if !canManageSession(ctx, s.repo, session, senderID) {
		if _, err := s.repo.Participant().GetBySessionAndUser(ctx, nil, sessionID, senderID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewPermissionError(senderID, sessionID, "chat", "post", "not a participant")
			}
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}

	if verrs := s.validator.GetBusinessValidator().ValidateMessageContent(req.Content); len(verrs) > 0 {
		return nil, verrs
	}

	room, err := s.repo.ChatRoom().GetOrCreateForSession(ctx, nil, session)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chat room: %w", err)
	}

	message := &models.Message{
		RoomID:   room.ID,
		SenderID: senderID,
		Content:  req.Content,
	}
	if err := s.repo.Message().Create(ctx, nil, message); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventMessagePosted, map[string]interface{}{
		"session_id": sessionID,
		"room_id":    room.ID,
		"sender_id":  senderID,
	})

	return &MessageResponse{Message: message}, nil
}

func (s *chatService) GetTranscript(ctx context.Context, sessionID, userID string, filters repositories.MessageFilters) (*TranscriptResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canViewSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, sessionID, "chat", "read", "not a participant")
	}

	// The chat switch gates reads as well as sends, and it can change
	// between requests, so it is re-checked on every call.
	if !session.ChatEnabled {
		return nil, ErrChatDisabled
	}

	room, err := s.repo.ChatRoom().GetOrCreateForSession(ctx, nil, session)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chat room: %w", err)
	}

	messages, err := s.repo.Message().ListByRoom(ctx, nil, room.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	responses := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, &MessageResponse{Message: m})
	}

	return &TranscriptResponse{
		RoomID:   room.ID,
		Messages: responses,
	}, nil
}
