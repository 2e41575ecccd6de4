package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type staticClassCount int64

func (c staticClassCount) CountClasses(ctx context.Context, teacherID string) (int64, error) {
	return int64(c), nil
}

func TestDashboardService_TeacherOverview(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	f.repo.dashboard.stats = &repositories.OwnerStats{
		TotalSessions:  4,
		ActiveSessions: 2,
		SavedSessions:  3,
		TotalStudents:  17,
	}
	f.repo.dashboard.recent = []*models.Session{
		{ID: "s1", Title: "Algebra", OwnerID: "teacher-1", JoinCode: "ABC123", IsActive: true},
	}
	service := NewDashboardService(f.repo, staticClassCount(3), f.logger, "http://boards.test")

	overview, err := service.TeacherOverview(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("TeacherOverview failed: %v", err)
	}
	if overview.Stats.TotalStudents != 17 {
		t.Errorf("Expected 17 students, got %d", overview.Stats.TotalStudents)
	}
	if overview.ClassCount != 3 {
		t.Errorf("Expected class count 3, got %d", overview.ClassCount)
	}
	if len(overview.RecentSessions) != 1 {
		t.Fatalf("Expected 1 recent session, got %d", len(overview.RecentSessions))
	}
	if !overview.RecentSessions[0].IsOwner {
		t.Error("Recent sessions belong to the teacher")
	}
}

func TestDashboardService_StudentOverview(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := NewDashboardService(f.repo, nil, f.logger, "http://boards.test")

	active := f.seedSession("s1", "teacher-1", "ABC123")
	ended := f.seedSession("s2", "teacher-1", "DEF456")
	ended.IsActive = false

	p1 := f.seedParticipant("s1", "student-1", true)
	p1.Session = *active
	p2 := f.seedParticipant("s2", "student-1", false)
	p2.Session = *ended

	overview, err := service.StudentOverview(ctx, "student-1")
	if err != nil {
		t.Fatalf("StudentOverview failed: %v", err)
	}
	if len(overview.Memberships) != 2 {
		t.Errorf("Expected 2 memberships, got %d", len(overview.Memberships))
	}
	if overview.ActiveSessionCount != 1 {
		t.Errorf("Expected 1 active session, got %d", overview.ActiveSessionCount)
	}
}

func TestDashboardService_SessionActivity(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := NewDashboardService(f.repo, nil, f.logger, "http://boards.test")
	f.seedSession("s1", "teacher-1", "ABC123")

	joined := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lastMessage := joined.Add(30 * time.Minute)
	f.repo.dashboard.activity = []repositories.ParticipantActivity{
		{
			UserID:       "student-1",
			FullName:     "Ada Student",
			StrokesCount: 12,
			MessageCount: 4,
			JoinedAt:     joined,
			LastMessage:  &lastMessage,
		},
		{
			UserID:   "student-2",
			FullName: "Quiet Student",
			JoinedAt: joined,
		},
	}

	entries, err := service.SessionActivity(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("SessionActivity failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !entries[0].LastActiveAt.Equal(lastMessage) {
		t.Errorf("Last active should be the newest of message, upload and join; got %v", entries[0].LastActiveAt)
	}
	if !entries[1].LastActiveAt.Equal(joined) {
		t.Error("Zero-activity participants fall back to their join time")
	}

	if _, err := service.SessionActivity(ctx, "s1", "student-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected permission denial for non-owner, got %v", err)
	}
}

func TestDashboardService_ExportActivityReport(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := NewDashboardService(f.repo, nil, f.logger, "http://boards.test")
	f.seedSession("s1", "teacher-1", "ABC123")

	f.repo.dashboard.activity = []repositories.ParticipantActivity{
		{
			UserID:       "student-1",
			FullName:     "Ada Student",
			CanDraw:      true,
			StrokesCount: 12,
			JoinedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	result, err := service.ExportActivityReport(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("ExportActivityReport failed: %v", err)
	}
	defer result.Reader.Close()

	if result.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected content type %q", result.ContentType)
	}
	if result.FileName != "activity-s1.xlsx" {
		t.Errorf("Unexpected file name %q", result.FileName)
	}

	f2, err := excelize.OpenReader(result.Reader)
	if err != nil {
		t.Fatalf("Exported workbook does not open: %v", err)
	}
	defer f2.Close()

	name, err := f2.GetCellValue("Activity", "A2")
	if err != nil {
		t.Fatalf("Failed to read cell: %v", err)
	}
	if name != "Ada Student" {
		t.Errorf("Expected first data row to hold the participant name, got %q", name)
	}

	if _, err := service.ExportActivityReport(ctx, "s1", "student-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected permission denial for non-owner, got %v", err)
	}
}
