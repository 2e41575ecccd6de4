package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/storage"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type sessionService struct {
	repo      repositories.Repository
	store     storage.ObjectStore
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	publicURL  string
	eventTopic string
}

// NewSessionService creates the session lifecycle service.
func NewSessionService(
	repo repositories.Repository,
	store storage.ObjectStore,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	publicURL, eventTopic string,
) SessionService {
	return &sessionService{
		repo:       repo,
		store:      store,
		events:     publisher,
		validator:  v,
		logger:     logger,
		publicURL:  publicURL,
		eventTopic: eventTopic,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, req *CreateSessionRequest, ownerID string) (*SessionResponse, error) {
	if verrs := s.validator.GetBusinessValidator().ValidateSessionCreate(req); len(verrs) > 0 {
		return nil, verrs
	}

	settings, err := settingsToJSON(req.Settings)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		OwnerID:      ownerID,
		ScheduledFor: req.ScheduledFor,
		Settings:     settings,
		ChatEnabled:  true,
		IsActive:     true,
	}

	if err := s.createWithUniqueCode(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Session created",
		"session_id", session.ID,
		"owner_id", ownerID,
		"join_code", session.JoinCode)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventSessionCreated, map[string]interface{}{
		"session_id": session.ID,
		"owner_id":   ownerID,
		"title":      session.Title,
	})

	return toSessionResponse(ctx, s.repo, session, ownerID, s.publicURL), nil
}

// createWithUniqueCode inserts the session, regenerating the join code on a
// unique-index collision. The database decides uniqueness; there is no
// check-then-insert race.
func (s *sessionService) createWithUniqueCode(ctx context.Context, session *models.Session) error {
	for attempt := 0; attempt < joinCodeMaxAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return err
		}
		session.JoinCode = code

		err = s.repo.Session().Create(ctx, nil, session)
		if err == nil {
			return nil
		}
		if !repositories.IsConflictError(err) {
			return fmt.Errorf("failed to create session: %w", err)
		}

		s.logger.WarnContext(ctx, "Join code collision, retrying",
			"session_id", session.ID,
			"attempt", attempt+1)
	}
	return ErrCodeGeneration
}

func (s *sessionService) GetSession(ctx context.Context, id, userID string) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return toSessionResponse(ctx, s.repo, session, userID, s.publicURL), nil
}

func (s *sessionService) ListSessions(ctx context.Context, ownerID string, filters repositories.SessionFilters) (*SessionListResponse, error) {
	sessions, total, err := s.repo.Session().ListByOwner(ctx, nil, ownerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, toSessionResponse(ctx, s.repo, session, ownerID, s.publicURL))
	}

	return &SessionListResponse{
		Sessions: responses,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *sessionService) UpdateSession(ctx context.Context, id string, req *UpdateSessionRequest, userID string) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !canManageSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, id, "session", "update", "not the session owner")
	}

	if verrs := s.validator.GetBusinessValidator().ValidateSessionUpdate(req, session); len(verrs) > 0 {
		return nil, verrs
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Description != nil {
		session.Description = req.Description
	}
	if req.ScheduledFor != nil {
		session.ScheduledFor = req.ScheduledFor
	}
	if req.Settings != nil {
		settings, err := settingsToJSON(req.Settings)
		if err != nil {
			return nil, err
		}
		session.Settings = settings
	}

	if err := s.repo.Session().Update(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return toSessionResponse(ctx, s.repo, session, userID, s.publicURL), nil
}

func (s *sessionService) EndSession(ctx context.Context, id, userID string) error {
	session, err := s.repo.Session().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if !canManageSession(ctx, s.repo, session, userID) {
		return NewPermissionError(userID, id, "session", "end", "not the session owner")
	}

	if err := s.repo.Session().Deactivate(ctx, nil, id); err != nil {
		// The row exists but is already inactive.
		if repositories.IsNotFoundError(err) {
			return ErrSessionEnded
		}
		return fmt.Errorf("failed to end session: %w", err)
	}

	s.logger.InfoContext(ctx, "Session ended", "session_id", id, "ended_by", userID)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventSessionEnded, map[string]interface{}{
		"session_id": id,
		"ended_by":   userID,
	})

	return nil
}

func (s *sessionService) DuplicateSession(ctx context.Context, id string, req *DuplicateSessionRequest, userID string) (*SessionResponse, error) {
	original, err := s.repo.Session().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !canManageSession(ctx, s.repo, original, userID) {
		return nil, NewPermissionError(userID, id, "session", "duplicate", "not the session owner")
	}

	title := original.Title + " (copy)"
	if req != nil && req.Title != nil {
		title = *req.Title
	}

	copySession := &models.Session{
		ID:          uuid.New().String(),
		Title:       title,
		Description: original.Description,
		OwnerID:     original.OwnerID,
		Settings:    original.Settings,
		ChatEnabled: original.ChatEnabled,
		IsActive:    true,
	}

	if err := s.createWithUniqueCode(ctx, copySession); err != nil {
		return nil, err
	}

	// Copy the latest snapshot into the new session's key namespace so the
	// copy starts from the saved board state.
	if original.SnapshotKey != nil && s.store != nil {
		newKey := fmt.Sprintf("snapshots/%s/%d.png", copySession.ID, time.Now().UnixNano())
		if err := s.store.Copy(ctx, *original.SnapshotKey, newKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to copy snapshot for duplicated session",
				"source_session_id", id,
				"session_id", copySession.ID,
				"error", err)
		} else {
			url := s.store.PublicURL(newKey)
			if err := s.repo.Session().UpdateSnapshot(ctx, nil, copySession.ID, url, newKey); err != nil {
				return nil, fmt.Errorf("failed to attach copied snapshot: %w", err)
			}
			copySession.SnapshotURL = &url
			copySession.SnapshotKey = &newKey
			copySession.IsSaved = true
			copySession.IsOfflineAvailable = true
		}
	}

	s.logger.InfoContext(ctx, "Session duplicated",
		"source_session_id", id,
		"session_id", copySession.ID)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventSessionCreated, map[string]interface{}{
		"session_id":      copySession.ID,
		"owner_id":        copySession.OwnerID,
		"title":           copySession.Title,
		"duplicated_from": id,
	})

	return toSessionResponse(ctx, s.repo, copySession, userID, s.publicURL), nil
}

func (s *sessionService) JoinQRCode(ctx context.Context, id, userID string) ([]byte, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !session.IsActive {
		return nil, ErrSessionEnded
	}

	png, err := qrcode.Encode(buildJoinURL(s.publicURL, session.JoinCode), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
