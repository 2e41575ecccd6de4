package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type permissionService struct {
	repo      repositories.Repository
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	publicURL  string
	eventTopic string
}

// NewPermissionService creates the draw-grant and chat-switch service.
func NewPermissionService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	publicURL, eventTopic string,
) PermissionService {
	return &permissionService{
		repo:       repo,
		events:     publisher,
		validator:  v,
		logger:     logger,
		publicURL:  publicURL,
		eventTopic: eventTopic,
	}
}

// requireManagedSession loads the session and enforces owner-only access.
func (s *permissionService) requireManagedSession(ctx context.Context, sessionID, actorID, action string) (*models.Session, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canManageSession(ctx, s.repo, session, actorID) {
		return nil, NewPermissionError(actorID, sessionID, "session", action, "not the session owner")
	}
	return session, nil
}

func (s *permissionService) ToggleDraw(ctx context.Context, sessionID string, req *ToggleDrawRequest, actorID string) (*ParticipantResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.requireManagedSession(ctx, sessionID, actorID, "toggle draw"); err != nil {
		return nil, err
	}

	// Single guarded update; the flag lands on exactly the requested value
	// no matter how requests interleave.
	rows, err := s.repo.Participant().SetCanDraw(ctx, nil, sessionID, req.UserID, *req.CanDraw)
	if err != nil {
		return nil, fmt.Errorf("failed to set draw permission: %w", err)
	}
	if rows == 0 {
		return nil, ErrParticipantNotFound
	}

	participant, err := s.repo.Participant().GetBySessionAndUser(ctx, nil, sessionID, req.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	s.logger.InfoContext(ctx, "Draw permission toggled",
		"session_id", sessionID,
		"user_id", req.UserID,
		"can_draw", *req.CanDraw,
		"actor_id", actorID)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventDrawToggled, map[string]interface{}{
		"session_id": sessionID,
		"user_id":    req.UserID,
		"can_draw":   *req.CanDraw,
	})

	return &ParticipantResponse{Participant: participant}, nil
}

func (s *permissionService) SyncPresence(ctx context.Context, sessionID string, req *PresenceSyncRequest, actorID string) (*PresenceSyncResponse, error) {
	if _, err := s.requireManagedSession(ctx, sessionID, actorID, "sync presence"); err != nil {
		return nil, err
	}

	// The revoke predicate runs inside the database, so a grant committed
	// after this sweep started keeps its permission.
	revoked, err := s.repo.Participant().RevokeAbsentDraw(ctx, nil, sessionID, req.PresentUserIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep presence: %w", err)
	}

	participants, err := s.repo.Participant().ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	presentSet := make(map[string]struct{}, len(req.PresentUserIDs))
	for _, id := range req.PresentUserIDs {
		presentSet[id] = struct{}{}
	}

	// Partition the known membership, not the reported set: ids in the
	// request that never joined do not appear in either half.
	present := make([]string, 0, len(participants))
	absent := make([]string, 0, len(participants))
	for _, p := range participants {
		if _, ok := presentSet[p.UserID]; ok {
			present = append(present, p.UserID)
		} else {
			absent = append(absent, p.UserID)
		}
	}
	sort.Strings(present)
	sort.Strings(absent)

	if revoked > 0 {
		s.logger.InfoContext(ctx, "Presence sweep revoked draw permissions",
			"session_id", sessionID,
			"revoked", revoked)
	}

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventPresenceSwept, map[string]interface{}{
		"session_id": sessionID,
		"revoked":    revoked,
		"present":    len(present),
		"absent":     len(absent),
	})

	return &PresenceSyncResponse{
		RevokedCount: revoked,
		Present:      present,
		Absent:       absent,
	}, nil
}

func (s *permissionService) ToggleChat(ctx context.Context, sessionID, actorID string) (*SessionResponse, error) {
	session, err := s.requireManagedSession(ctx, sessionID, actorID, "toggle chat")
	if err != nil {
		return nil, err
	}

	enabled := !session.ChatEnabled
	if err := s.repo.Session().SetChatEnabled(ctx, nil, sessionID, enabled); err != nil {
		return nil, fmt.Errorf("failed to toggle chat: %w", err)
	}
	session.ChatEnabled = enabled

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventChatToggled, map[string]interface{}{
		"session_id": sessionID,
		"enabled":    enabled,
	})

	return toSessionResponse(ctx, s.repo, session, actorID, s.publicURL), nil
}
