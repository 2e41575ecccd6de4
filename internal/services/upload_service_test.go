package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newUploadService(f *serviceFixture) UploadService {
	return NewUploadService(f.repo, f.store, f.publisher, f.logger, "whiteboard.events")
}

func TestUploadService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("GrantedParticipantUploads", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newUploadService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		p := f.seedParticipant("s1", "student-1", true)

		resp, err := service.Upload(ctx, "s1", "student-1", "notes.png", "image/png", strings.NewReader("data"), 4)
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if resp.FileName != "notes.png" {
			t.Errorf("Unexpected file name %q", resp.FileName)
		}
		if f.store.Len() != 1 {
			t.Errorf("Expected 1 stored object, got %d", f.store.Len())
		}
		if p.UploadsCount != 1 {
			t.Errorf("Expected upload counter bumped, got %d", p.UploadsCount)
		}
	})

	t.Run("UngrantedParticipantDenied", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newUploadService(f)
		f.seedSession("s1", "teacher-1", "ABC123")
		f.seedParticipant("s1", "student-1", false)

		_, err := service.Upload(ctx, "s1", "student-1", "notes.png", "image/png", strings.NewReader("data"), 4)
		if !errors.Is(err, ErrDrawNotAllowed) {
			t.Errorf("Expected ErrDrawNotAllowed, got %v", err)
		}
	})

	t.Run("OwnerNeedsNoGrant", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newUploadService(f)
		f.seedSession("s1", "teacher-1", "ABC123")

		if _, err := service.Upload(ctx, "s1", "teacher-1", "slides.pdf", "application/pdf", strings.NewReader("pdf"), 3); err != nil {
			t.Errorf("Owner upload should pass: %v", err)
		}
	})

	t.Run("EndedSessionRejects", func(t *testing.T) {
		f := newServiceFixture(t)
		service := newUploadService(f)
		session := f.seedSession("s1", "teacher-1", "ABC123")
		session.IsActive = false

		_, err := service.Upload(ctx, "s1", "teacher-1", "late.png", "image/png", strings.NewReader("x"), 1)
		if !errors.Is(err, ErrSessionEnded) {
			t.Errorf("Expected ErrSessionEnded, got %v", err)
		}
	})
}

func TestUploadService_ListUploads(t *testing.T) {
	ctx := context.Background()

	f := newServiceFixture(t)
	service := newUploadService(f)
	f.seedSession("s1", "teacher-1", "ABC123")
	f.seedParticipant("s1", "student-1", true)

	if _, err := service.Upload(ctx, "s1", "student-1", "a.png", "image/png", strings.NewReader("a"), 1); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	uploads, err := service.ListUploads(ctx, "s1", "student-1")
	if err != nil {
		t.Fatalf("ListUploads failed: %v", err)
	}
	if len(uploads) != 1 {
		t.Errorf("Expected 1 upload, got %d", len(uploads))
	}

	if _, err := service.ListUploads(ctx, "s1", "outsider"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Outsider must be denied, got %v", err)
	}
}
