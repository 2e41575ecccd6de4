package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
)

func newSessionService(f *serviceFixture) SessionService {
	return NewSessionService(f.repo, f.store, f.publisher, f.validator, f.logger, "http://boards.test", "whiteboard.events")
}

func TestSessionService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratesJoinCode", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)

		resp, err := service.CreateSession(ctx, &CreateSessionRequest{Title: "Geometry"}, "teacher-1")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(resp.JoinCode) {
			t.Errorf("Expected 6 char uppercase code, got %q", resp.JoinCode)
		}
		if !resp.IsActive {
			t.Error("New session should be active")
		}
		if !resp.ChatEnabled {
			t.Error("New session should have chat enabled")
		}
		if resp.JoinURL != "http://boards.test/join/"+resp.JoinCode {
			t.Errorf("Unexpected join URL %q", resp.JoinURL)
		}

		created := f.eventsOfType(events.EventSessionCreated)
		if len(created) != 1 {
			t.Fatalf("Expected 1 session.created event, got %d", len(created))
		}
	})

	t.Run("RetriesOnCodeCollision", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)

		// First two inserts collide, the third succeeds.
		f.repo.sessions.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey, nil}

		resp, err := service.CreateSession(ctx, &CreateSessionRequest{Title: "Physics"}, "teacher-1")
		if err != nil {
			t.Fatalf("CreateSession should retry past collisions: %v", err)
		}
		if resp.JoinCode == "" {
			t.Error("Expected a join code after retries")
		}
	})

	t.Run("GivesUpAfterRepeatedCollisions", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)

		for i := 0; i < joinCodeMaxAttempts; i++ {
			f.repo.sessions.createErrs = append(f.repo.sessions.createErrs, gorm.ErrDuplicatedKey)
		}

		_, err := service.CreateSession(ctx, &CreateSessionRequest{Title: "Chemistry"}, "teacher-1")
		if !errors.Is(err, ErrCodeGeneration) {
			t.Errorf("Expected ErrCodeGeneration, got %v", err)
		}
	})

	t.Run("RejectsEmptyTitle", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)

		_, err := service.CreateSession(ctx, &CreateSessionRequest{Title: "   "}, "teacher-1")
		if err == nil {
			t.Fatal("Expected validation error for blank title")
		}
	})
}

func TestSessionService_EndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerEndsSession", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		if err := service.EndSession(ctx, "s1", "teacher-1"); err != nil {
			t.Fatalf("EndSession failed: %v", err)
		}
		if f.repo.sessions.sessions["s1"].IsActive {
			t.Error("Session should be inactive after ending")
		}
		if len(f.eventsOfType(events.EventSessionEnded)) != 1 {
			t.Error("Expected session.ended event")
		}
	})

	t.Run("NonOwnerDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		err := service.EndSession(ctx, "s1", "student-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected permission denial, got %v", err)
		}
	})

	t.Run("EndingTwiceFails", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false

		err := service.EndSession(ctx, "s1", "teacher-1")
		if !errors.Is(err, ErrSessionEnded) {
			t.Errorf("Expected ErrSessionEnded, got %v", err)
		}
	})

	t.Run("MissingSession", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)

		err := service.EndSession(ctx, "missing", "teacher-1")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestSessionService_UpdateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsEndedSession", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false

		title := "New Title"
		_, err := service.UpdateSession(ctx, "s1", &UpdateSessionRequest{Title: &title}, "teacher-1")
		if err == nil {
			t.Fatal("Expected validation error updating an ended session")
		}
	})

	t.Run("OwnerUpdatesTitle", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		title := "Updated"
		resp, err := service.UpdateSession(ctx, "s1", &UpdateSessionRequest{Title: &title}, "teacher-1")
		if err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		if resp.Title != "Updated" {
			t.Errorf("Expected updated title, got %q", resp.Title)
		}
	})
}

func TestSessionService_DuplicateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("CopiesSnapshotUnderNewKey", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")

		key := "snapshots/s1/1.png"
		if err := f.store.Put(ctx, key, strings.NewReader("fake-png"), 8, "image/png"); err != nil {
			t.Fatalf("seed snapshot: %v", err)
		}
		session.SnapshotKey = &key
		session.IsSaved = true

		resp, err := service.DuplicateSession(ctx, "s1", &DuplicateSessionRequest{}, "teacher-1")
		if err != nil {
			t.Fatalf("DuplicateSession failed: %v", err)
		}

		if resp.ID == "s1" {
			t.Error("Duplicate must get a fresh ID")
		}
		if resp.JoinCode == "ABC123" {
			t.Error("Duplicate must get a fresh join code")
		}
		if resp.Title != "Algebra Review (copy)" {
			t.Errorf("Unexpected duplicate title %q", resp.Title)
		}
		if resp.SnapshotKey == nil || *resp.SnapshotKey == key {
			t.Error("Snapshot must be copied under a new key")
		}
		if f.store.Len() != 2 {
			t.Errorf("Expected 2 objects after copy, got %d", f.store.Len())
		}
	})

	t.Run("WithoutSnapshot", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		resp, err := service.DuplicateSession(ctx, "s1", &DuplicateSessionRequest{}, "teacher-1")
		if err != nil {
			t.Fatalf("DuplicateSession failed: %v", err)
		}
		if resp.IsSaved {
			t.Error("Duplicate of an unsaved session should start unsaved")
		}
	})

	t.Run("NonOwnerDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newSessionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		_, err := service.DuplicateSession(ctx, "s1", &DuplicateSessionRequest{}, "student-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected permission denial, got %v", err)
		}
		if len(f.repo.sessions.sessions) != 1 {
			t.Errorf("Denied duplication must not create a session, have %d", len(f.repo.sessions.sessions))
		}
	})
}

func TestSessionService_JoinQRCode(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	service := newSessionService(f)
	f.seedSession("s1", "teacher-1", "ABC123")

	png, err := service.JoinQRCode(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("JoinQRCode failed: %v", err)
	}
	if len(png) == 0 {
		t.Error("Expected PNG bytes")
	}

	ended := f.seedSession("s2", "teacher-1", "DEF456")
	ended.IsActive = false
	if _, err := service.JoinQRCode(ctx, "s2", "teacher-1"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Expected ErrSessionEnded for inactive session, got %v", err)
	}
}
