package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
)

func newPermissionService(f *serviceFixture) PermissionService {
	return NewPermissionService(f.repo, f.publisher, f.validator, f.logger, "http://boards.test", "whiteboard.events")
}

func boolPtr(b bool) *bool { return &b }

func TestPermissionService_ToggleDraw(t *testing.T) {
	ctx := context.Background()

	t.Run("SetsExactValue", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		resp, err := service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "student-1", CanDraw: boolPtr(true)}, "teacher-1")
		if err != nil {
			t.Fatalf("ToggleDraw failed: %v", err)
		}
		if !resp.CanDraw {
			t.Error("Expected can_draw true")
		}

		// Setting the same value again is a no-op, not a flip.
		resp, err = service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "student-1", CanDraw: boolPtr(true)}, "teacher-1")
		if err != nil {
			t.Fatalf("ToggleDraw failed: %v", err)
		}
		if !resp.CanDraw {
			t.Error("Repeating the same grant must not flip the flag")
		}

		if len(f.eventsOfType(events.EventDrawToggled)) != 2 {
			t.Error("Expected a draw_toggled event per call")
		}
	})

	t.Run("NonOwnerDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		_, err := service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "student-1", CanDraw: boolPtr(true)}, "student-2")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected permission denial, got %v", err)
		}
	})

	t.Run("UnknownParticipant", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		_, err := service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "ghost", CanDraw: boolPtr(true)}, "teacher-1")
		if !errors.Is(err, ErrParticipantNotFound) {
			t.Errorf("Expected ErrParticipantNotFound, got %v", err)
		}
	})
}

func TestPermissionService_SyncPresence(t *testing.T) {
	ctx := context.Background()

	t.Run("RevokesAbsentHoldersOnly", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "present-holder", true)
		f.seedParticipant("s1", "absent-holder", true)
		f.seedParticipant("s1", "absent-nonholder", false)

		resp, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{PresentUserIDs: []string{"present-holder"}}, "teacher-1")
		if err != nil {
			t.Fatalf("SyncPresence failed: %v", err)
		}

		if resp.RevokedCount != 1 {
			t.Errorf("Expected 1 revocation, got %d", resp.RevokedCount)
		}
		if !f.repo.participants.find("s1", "present-holder").CanDraw {
			t.Error("Present holder must keep draw permission")
		}
		if f.repo.participants.find("s1", "absent-holder").CanDraw {
			t.Error("Absent holder must lose draw permission")
		}

		if !reflect.DeepEqual(resp.Present, []string{"present-holder"}) {
			t.Errorf("Unexpected present partition %v", resp.Present)
		}
		if !reflect.DeepEqual(resp.Absent, []string{"absent-holder", "absent-nonholder"}) {
			t.Errorf("Expected sorted absent partition, got %v", resp.Absent)
		}
	})

	t.Run("UnknownPresentIDsIgnored", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", true)

		resp, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{PresentUserIDs: []string{"student-1", "never-joined"}}, "teacher-1")
		if err != nil {
			t.Fatalf("SyncPresence failed: %v", err)
		}
		if !reflect.DeepEqual(resp.Present, []string{"student-1"}) {
			t.Errorf("Ids that never joined must not appear in the partition, got %v", resp.Present)
		}
	})

	t.Run("EmptyPresentSetRevokesAll", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "holder-1", true)
		f.seedParticipant("s1", "holder-2", true)

		resp, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{}, "teacher-1")
		if err != nil {
			t.Fatalf("SyncPresence failed: %v", err)
		}
		if resp.RevokedCount != 2 {
			t.Errorf("Expected all holders revoked, got %d", resp.RevokedCount)
		}
	})

	t.Run("NonOwnerDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		_, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{}, "student-1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected permission denial, got %v", err)
		}
	})

	t.Run("GrantAfterSweepWins", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newPermissionService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "user-a", true)
		f.seedParticipant("s1", "user-b", false)

		// A grant for user-b lands after the sweep's revoke has written but
		// before the sweep returns. The revoke predicate already ran, so the
		// late grant must not be clobbered.
		f.repo.participants.afterRevoke = func() {
			if _, err := f.repo.participants.SetCanDraw(ctx, nil, "s1", "user-b", true); err != nil {
				t.Fatalf("grant: %v", err)
			}
		}

		resp, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{PresentUserIDs: []string{"user-a"}}, "teacher-1")
		if err != nil {
			t.Fatalf("SyncPresence failed: %v", err)
		}
		if resp.RevokedCount != 0 {
			t.Errorf("user-b held no grant at sweep time, got %d revocations", resp.RevokedCount)
		}
		if !f.repo.participants.find("s1", "user-b").CanDraw {
			t.Error("A grant ordered after the sweep's write must survive the sweep")
		}

		// A grant issued after the sweep completes also sticks.
		f.repo.participants.afterRevoke = nil
		if _, err := service.SyncPresence(ctx, "s1", &PresenceSyncRequest{PresentUserIDs: []string{"user-a"}}, "teacher-1"); err != nil {
			t.Fatalf("SyncPresence failed: %v", err)
		}
		if _, err := service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "user-b", CanDraw: boolPtr(true)}, "teacher-1"); err != nil {
			t.Fatalf("ToggleDraw failed: %v", err)
		}
		if !f.repo.participants.find("s1", "user-b").CanDraw {
			t.Error("Expected the post-sweep grant to hold")
		}
	})
}

func TestPermissionService_ToggleChat(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := newPermissionService(f)
	f.seedSession("s1", "teacher-1", "ABC123")

	resp, err := service.ToggleChat(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("ToggleChat failed: %v", err)
	}
	if resp.ChatEnabled {
		t.Error("First flip should disable chat")
	}

	resp, err = service.ToggleChat(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("ToggleChat failed: %v", err)
	}
	if !resp.ChatEnabled {
		t.Error("Second flip should re-enable chat")
	}

	if len(f.eventsOfType(events.EventChatToggled)) != 2 {
		t.Error("Expected a chat_toggled event per flip")
	}

	if _, err := service.ToggleChat(ctx, "s1", "student-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected permission denial for student, got %v", err)
	}
}

func TestPermissionService_AdminPasses(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := newPermissionService(f)
	f.seedSession("s1", "teacher-1", "ABC123")
	f.seedParticipant("s1", "student-1", false)
	f.repo.users.users["admin-1"] = &models.User{ID: "admin-1", FullName: "Admin", Role: models.RoleAdmin}

	resp, err := service.ToggleDraw(ctx, "s1", &ToggleDrawRequest{UserID: "student-1", CanDraw: boolPtr(true)}, "admin-1")
	if err != nil {
		t.Fatalf("Admin should manage any session: %v", err)
	}
	if !resp.CanDraw {
		t.Error("Expected grant applied")
	}
}
