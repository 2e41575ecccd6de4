package services

import (
	"context"
	"errors"
	"testing"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
)

func newParticipantService(f *serviceFixture) ParticipantService {
	return NewParticipantService(f.repo, f.publisher, f.validator, f.logger, "http://boards.test", "whiteboard.events")
}

func TestParticipantService_JoinByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("JoinIsIdempotent", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		first, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "ABC123"}, "student-1")
		if err != nil {
			t.Fatalf("JoinByCode failed: %v", err)
		}
		if !first.Created {
			t.Error("First join should create a membership")
		}

		second, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "abc123"}, "student-1")
		if err != nil {
			t.Fatalf("Second join failed: %v", err)
		}
		if second.Created {
			t.Error("Rejoining must not create a second membership")
		}
		if second.Participant.ID != first.Participant.ID {
			t.Error("Rejoin must resolve to the same membership row")
		}
		if second.Participant.LastActive == nil {
			t.Error("Rejoin must refresh last_active")
		}

		if len(f.eventsOfType(events.EventParticipantJoined)) != 1 {
			t.Error("Only the creating join publishes participant_joined")
		}
	})

	t.Run("CaseInsensitiveCode", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		f.seedSession("s1", "teacher-1", "XYZ789")

		resp, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "xyz789"}, "student-1")
		if err != nil {
			t.Fatalf("Lowercase code should resolve: %v", err)
		}
		if resp.Session.ID != "s1" {
			t.Errorf("Joined wrong session %q", resp.Session.ID)
		}
	})

	t.Run("UnknownCode", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)

		_, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "NOPE11"}, "student-1")
		if !errors.Is(err, ErrInvalidJoinCode) {
			t.Errorf("Expected ErrInvalidJoinCode, got %v", err)
		}
	})

	t.Run("EndedSessionCodeLooksInvalid", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false

		_, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "ABC123"}, "student-1")
		if !errors.Is(err, ErrInvalidJoinCode) {
			t.Errorf("Ended session code must look invalid, got %v", err)
		}
	})

	t.Run("MalformedCode", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)

		if _, err := service.JoinByCode(ctx, &JoinSessionRequest{Code: "AB"}, "student-1"); err == nil {
			t.Error("Short code must fail validation")
		}
	})
}

func TestParticipantService_RecordStroke(t *testing.T) {
	ctx := context.Background()

	t.Run("GrantedParticipant", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		p := f.seedParticipant("s1", "student-1", true)

		if err := service.RecordStroke(ctx, "s1", "student-1"); err != nil {
			t.Fatalf("RecordStroke failed: %v", err)
		}
		if p.StrokesCount != 1 {
			t.Errorf("Expected 1 stroke, got %d", p.StrokesCount)
		}
	})

	t.Run("WithoutGrant", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		if err := service.RecordStroke(ctx, "s1", "student-1"); !errors.Is(err, ErrDrawNotAllowed) {
			t.Errorf("Expected ErrDrawNotAllowed, got %v", err)
		}
	})

	t.Run("OwnerNeedsNoGrant", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		if err := service.RecordStroke(ctx, "s1", "teacher-1"); err != nil {
			t.Errorf("Owner should draw freely: %v", err)
		}
	})

	t.Run("EndedSession", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newParticipantService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false
		f.seedParticipant("s1", "student-1", true)

		if err := service.RecordStroke(ctx, "s1", "student-1"); !errors.Is(err, ErrSessionEnded) {
			t.Errorf("Expected ErrSessionEnded, got %v", err)
		}
	})
}

func TestParticipantService_ListParticipants(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := newParticipantService(f)
	f.seedSession("s1", "teacher-1", "ABC123")
	f.seedParticipant("s1", "student-1", false)
	f.seedParticipant("s1", "student-2", true)

	list, err := service.ListParticipants(ctx, "s1", "teacher-1")
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(list))
	}

	// Members may see the roster too.
	if _, err := service.ListParticipants(ctx, "s1", "student-1"); err != nil {
		t.Errorf("Member should see the roster: %v", err)
	}

	if _, err := service.ListParticipants(ctx, "s1", "outsider"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Outsider must be denied, got %v", err)
	}
}
