package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

func newChatService(f *serviceFixture) ChatService {
	return NewChatService(f.repo, f.publisher, f.validator, f.logger, "whiteboard.events")
}

func TestChatService_PostMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("ParticipantPosts", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newChatService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		resp, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "hello"}, "student-1")
		if err != nil {
			t.Fatalf("PostMessage failed: %v", err)
		}
		if resp.Content != "hello" {
			t.Errorf("Unexpected content %q", resp.Content)
		}
		if len(f.eventsOfType(events.EventMessagePosted)) != 1 {
			t.Error("Expected message_posted event")
		}
	})

	t.Run("DisabledChatBlocksEveryone", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newChatService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.ChatEnabled = false
		f.seedParticipant("s1", "student-1", false)

		_, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "hi"}, "student-1")
		if !errors.Is(err, ErrChatDisabled) {
			t.Errorf("Expected ErrChatDisabled for student, got %v", err)
		}

		// The switch gates the owner too; announcements are the owner's
		// broadcast channel while chat is off.
		if _, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "hello"}, "teacher-1"); !errors.Is(err, ErrChatDisabled) {
			t.Errorf("Expected ErrChatDisabled for owner, got %v", err)
		}
	})

	t.Run("NonParticipantDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newChatService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		_, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "hi"}, "outsider")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected permission denial, got %v", err)
		}
	})

	t.Run("ContentBounds", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newChatService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		if _, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "   "}, "student-1"); err == nil {
			t.Error("Blank content must be rejected")
		}

		long := strings.Repeat("x", 501)
		if _, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: long}, "student-1"); err == nil {
			t.Error("Content over 500 characters must be rejected")
		}

		exact := strings.Repeat("y", 500)
		if _, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: exact}, "student-1"); err != nil {
			t.Errorf("Exactly 500 characters must pass: %v", err)
		}
	})

	t.Run("EndedSessionRejects", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newChatService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false
		f.seedParticipant("s1", "student-1", false)

		_, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: "hi"}, "student-1")
		if !errors.Is(err, ErrSessionEnded) {
			t.Errorf("Expected ErrSessionEnded, got %v", err)
		}
	})
}

func TestChatService_GetTranscript(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := newChatService(f)
	session := f.seedSession("s1", "teacher-1", "ABC123")
	f.seedParticipant("s1", "student-1", false)

	for _, content := range []string{"first", "second"} {
		if _, err := service.PostMessage(ctx, "s1", &PostMessageRequest{Content: content}, "student-1"); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	transcript, err := service.GetTranscript(ctx, "s1", "teacher-1", repositories.MessageFilters{})
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if len(transcript.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(transcript.Messages))
	}

	if _, err := service.GetTranscript(ctx, "s1", "outsider", repositories.MessageFilters{}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected permission denial for outsider, got %v", err)
	}

	// Disabling chat cuts off reads too, for members and owner alike.
	session.ChatEnabled = false
	if _, err := service.GetTranscript(ctx, "s1", "student-1", repositories.MessageFilters{}); !errors.Is(err, ErrChatDisabled) {
		t.Errorf("Expected ErrChatDisabled on read for participant, got %v", err)
	}
	if _, err := service.GetTranscript(ctx, "s1", "teacher-1", repositories.MessageFilters{}); !errors.Is(err, ErrChatDisabled) {
		t.Errorf("Expected ErrChatDisabled on read for owner, got %v", err)
	}
}
