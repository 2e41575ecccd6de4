package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type participantService struct {
	repo      repositories.Repository
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	publicURL  string
	eventTopic string
}

// NewParticipantService creates the membership service.
func NewParticipantService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	publicURL, eventTopic string,
) ParticipantService {
	return &participantService{
		repo:       repo,
		events:     publisher,
		validator:  v,
		logger:     logger,
		publicURL:  publicURL,
		eventTopic: eventTopic,
	}
}

func (s *participantService) JoinByCode(ctx context.Context, req *JoinSessionRequest, userID string) (*JoinResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByCode(ctx, nil, strings.ToUpper(req.Code))
	if err != nil {
		// An unknown code and an ended session look the same to the caller;
		// neither reveals whether the code ever existed.
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidJoinCode
		}
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	}

	participant, created, err := s.repo.Participant().GetOrCreate(ctx, nil, session.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	if created {
		s.logger.InfoContext(ctx, "Participant joined",
			"session_id", session.ID,
			"user_id", userID)

		publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventParticipantJoined, map[string]interface{}{
			"session_id": session.ID,
			"user_id":    userID,
		})
	}

	return &JoinResponse{
		Session:     toSessionResponse(ctx, s.repo, session, userID, s.publicURL),
		Participant: &ParticipantResponse{Participant: participant},
		Created:     created,
	}, nil
}

func (s *participantService) ListParticipants(ctx context.Context, sessionID, userID string) ([]*ParticipantResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Members and the owner may see the roster.
	if !canManageSession(ctx, s.repo, session, userID) {
		if _, err := s.repo.Participant().GetBySessionAndUser(ctx, nil, sessionID, userID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewPermissionError(userID, sessionID, "session", "list participants", "not a participant")
			}
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}

	participants, err := s.repo.Participant().ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	responses := make([]*ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		responses = append(responses, &ParticipantResponse{Participant: p})
	}
	return responses, nil
}

func (s *participantService) RecordStroke(ctx context.Context, sessionID, userID string) error {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if !session.IsActive {
		return ErrSessionEnded
	}

	// The owner draws without a membership row or a grant.
	if session.IsOwnedBy(userID) {
		return nil
	}

	participant, err := s.repo.Participant().GetBySessionAndUser(ctx, nil, sessionID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to get participant: %w", err)
	}
	if !participant.CanDraw {
		return ErrDrawNotAllowed
	}

	rows, err := s.repo.Participant().IncrementStrokes(ctx, nil, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to record stroke: %w", err)
	}
	if rows == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
