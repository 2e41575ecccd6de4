package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type notificationService struct {
	repo      repositories.Repository
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	eventTopic string
}

// NewNotificationService creates the announcement delivery service.
func NewNotificationService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	eventTopic string,
) NotificationService {
	return &notificationService{
		repo:       repo,
		events:     publisher,
		validator:  v,
		logger:     logger,
		eventTopic: eventTopic,
	}
}

func (s *notificationService) Announce(ctx context.Context, sessionID string, req *AnnouncementRequest, actorID string) (*AnnouncementResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canManageSession(ctx, s.repo, session, actorID) {
		return nil, NewPermissionError(actorID, sessionID, "notification", "announce", "not the session owner")
	}

	participants, err := s.repo.Participant().ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	result := &AnnouncementResult{}
	for _, p := range participants {
		if p.UserID == actorID {
			continue
		}

		notification := &models.Notification{
			RecipientID: p.UserID,
			SessionID:   &session.ID,
			Content:     content,
			IsUrgent:    req.IsUrgent,
		}
		created, err := s.repo.Notification().GetOrCreate(ctx, nil, notification)
		if err != nil {
			return nil, fmt.Errorf("failed to deliver notification to %s: %w", p.UserID, err)
		}

		result.Recipients++
		if created {
			result.Created++
		}
	}

	s.logger.InfoContext(ctx, "Announcement sent",
		"session_id", sessionID,
		"recipients", result.Recipients,
		"created", result.Created,
		"is_urgent", req.IsUrgent)

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventAnnouncementSent, map[string]interface{}{
		"session_id": sessionID,
		"recipients": result.Recipients,
		"is_urgent":  req.IsUrgent,
	})

	return result, nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error) {
	notifications, total, err := s.repo.Notification().ListByRecipient(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.repo.Notification().UnreadCount(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	responses := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, &NotificationResponse{
			Notification: n,
			IsRead:       n.IsRead(),
		})
	}

	return &NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) error {
	rows, err := s.repo.Notification().MarkRead(ctx, nil, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	// Zero rows means the notification does not exist, belongs to someone
	// else, or is already read. Already-read is not an error.
	if rows == 0 {
		notifications, _, listErr := s.repo.Notification().ListByRecipient(ctx, nil, userID, repositories.NotificationFilters{})
		if listErr != nil {
			return ErrNotificationNotFound
		}
		for _, n := range notifications {
			if n.ID == id {
				return nil
			}
		}
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification().UnreadCount(ctx, nil, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
