package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/storage"
)

type uploadService struct {
	repo   repositories.Repository
	store  storage.ObjectStore
	events events.EventPublisher
	logger *slog.Logger

	eventTopic string
}

// NewUploadService creates the attachment service.
func NewUploadService(
	repo repositories.Repository,
	store storage.ObjectStore,
	publisher events.EventPublisher,
	logger *slog.Logger,
	eventTopic string,
) UploadService {
	return &uploadService{
		repo:       repo,
		store:      store,
		events:     publisher,
		logger:     logger,
		eventTopic: eventTopic,
	}
}

func (s *uploadService) Upload(ctx context.Context, sessionID, uploaderID, fileName, contentType string, r io.Reader, size int64) (*UploadResponse, error) {
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

	isManager := canManageSession(ctx, s.repo, session, uploaderID)
	if !isManager {
		participant, err := s.repo.Participant().GetBySessionAndUser(ctx, nil, sessionID, uploaderID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewPermissionError(uploaderID, sessionID, "upload", "create", "not a participant")
			}
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		// Uploading onto the board requires the same grant as drawing.
		if !participant.CanDraw {
			return nil, ErrDrawNotAllowed
		}
	}

	key := fmt.Sprintf("uploads/%s/%d%s", sessionID, time.Now().UnixNano(), filepath.Ext(fileName))
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	upload := &models.UploadedFile{
		SessionID:  sessionID,
		UploaderID: uploaderID,
		FileName:   fileName,
		StorageKey: key,
		FileURL:    s.store.PublicURL(key),
		SizeBytes:  size,
	}
	if err := s.repo.Upload().Create(ctx, nil, upload); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	if !isManager {
		if _, err := s.repo.Participant().IncrementUploads(ctx, nil, sessionID, uploaderID); err != nil {
			s.logger.WarnContext(ctx, "Failed to bump upload counter",
				"session_id", sessionID,
				"user_id", uploaderID,
				"error", err)
		}
	}

	s.logger.InfoContext(ctx, "File uploaded",
		"session_id", sessionID,
		"uploader_id", uploaderID,
		"file_name", fileName,
		"size_bytes", size)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventFileUploaded, map[string]interface{}{
		"session_id":  sessionID,
		"uploader_id": uploaderID,
		"file_name":   fileName,
	})

	return &UploadResponse{UploadedFile: upload}, nil
}

func (s *uploadService) ListUploads(ctx context.Context, sessionID, userID string) ([]*UploadResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canViewSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, sessionID, "upload", "list", "not a participant")
	}

	uploads, err := s.repo.Upload().ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	responses := make([]*UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		responses = append(responses, &UploadResponse{UploadedFile: u})
	}
	return responses, nil
}
