package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

// noopClassCountProvider stands in until a class roster system is wired up.
type noopClassCountProvider struct{}

func (noopClassCountProvider) CountClasses(ctx context.Context, teacherID string) (int64, error) {
	return 0, nil
}

type dashboardService struct {
	repo       repositories.Repository
	classCount ClassCountProvider
	logger     *slog.Logger

	publicURL string
}

// NewDashboardService creates the dashboard aggregation service. A nil
// classCount falls back to a provider reporting zero classes.
func NewDashboardService(
	repo repositories.Repository,
	classCount ClassCountProvider,
	logger *slog.Logger,
	publicURL string,
) DashboardService {
	if classCount == nil {
		classCount = noopClassCountProvider{}
	}
	return &dashboardService{
		repo:       repo,
		classCount: classCount,
		logger:     logger,
		publicURL:  publicURL,
	}
}

func (s *dashboardService) TeacherOverview(ctx context.Context, teacherID string) (*TeacherDashboardResponse, error) {
	stats, err := s.repo.Dashboard().GetOwnerStats(ctx, nil, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner stats: %w", err)
	}

	recent, err := s.repo.Dashboard().GetRecentSessions(ctx, nil, teacherID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}

	classCount, err := s.classCount.CountClasses(ctx, teacherID)
	if err != nil {
		// The class roster lives in another system; its outage must not
		// take the dashboard down.
		s.logger.WarnContext(ctx, "Failed to count classes",
			"teacher_id", teacherID,
			"error", err)
		classCount = 0
	}

	sessions := make([]*SessionResponse, 0, len(recent))
	for _, session := range recent {
		sessions = append(sessions, toSessionResponse(ctx, s.repo, session, teacherID, s.publicURL))
	}

	return &TeacherDashboardResponse{
		Stats:          stats,
		ClassCount:     classCount,
		RecentSessions: sessions,
	}, nil
}

func (s *dashboardService) StudentOverview(ctx context.Context, studentID string) (*StudentDashboardResponse, error) {
	memberships, err := s.repo.Participant().ListByUser(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	unread, err := s.repo.Notification().UnreadCount(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	active := 0
	responses := make([]*ParticipantResponse, 0, len(memberships))
	for _, m := range memberships {
		if m.Session.IsActive {
			active++
		}
		responses = append(responses, &ParticipantResponse{Participant: m})
	}

	return &StudentDashboardResponse{
		Memberships:        responses,
		ActiveSessionCount: active,
		UnreadCount:        unread,
	}, nil
}

func (s *dashboardService) SessionActivity(ctx context.Context, sessionID, userID string) ([]ParticipantActivityEntry, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canManageSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, sessionID, "dashboard", "view activity", "not the session owner")
	}

	rows, err := s.repo.Dashboard().GetParticipantActivity(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant activity: %w", err)
	}

	entries := make([]ParticipantActivityEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ParticipantActivityEntry{
			ParticipantActivity: row,
			LastActiveAt:        row.LastActive(),
		})
	}
	return entries, nil
}

var activityReportHeader = []string{
	"Student", "Can Draw", "Strokes", "Uploads", "Messages", "Joined At", "Last Active",
}

func (s *dashboardService) ExportActivityReport(ctx context.Context, sessionID, userID string) (*ExportResult, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canManageSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, sessionID, "dashboard", "export activity", "not the session owner")
	}

	rows, err := s.repo.Dashboard().GetParticipantActivity(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant activity: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Activity"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range activityReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.FullName,
			row.CanDraw,
			row.StrokesCount,
			row.UploadCount,
			row.MessageCount,
			row.JoinedAt.UTC().Format(time.RFC3339),
			row.LastActive().UTC().Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	return &ExportResult{
		Reader:      io.NopCloser(buf),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		FileName:    fmt.Sprintf("activity-%s.xlsx", sessionID),
	}, nil
}
