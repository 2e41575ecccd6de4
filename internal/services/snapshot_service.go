package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "image/jpeg"

	"github.com/jung-kurt/gofpdf"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/storage"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

type snapshotService struct {
	repo      repositories.Repository
	store     storage.ObjectStore
	events    events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	eventTopic string
}

// NewSnapshotService creates the canvas persistence and export service.
func NewSnapshotService(
	repo repositories.Repository,
	store storage.ObjectStore,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	eventTopic string,
) SnapshotService {
	return &snapshotService{
		repo:       repo,
		store:      store,
		events:     publisher,
		validator:  v,
		logger:     logger,
		eventTopic: eventTopic,
	}
}

// decodeImageData parses a base64 data URL (or bare base64) into bytes plus
// a content type and file extension.
func decodeImageData(data string) ([]byte, string, string, error) {
	contentType := "image/png"
	ext := "png"

	if strings.HasPrefix(data, "data:") {
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return nil, "", "", ErrNoImageData
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		meta = strings.TrimSuffix(meta, ";base64")
		if meta != "" {
			contentType = meta
		}
		if strings.Contains(contentType, "jpeg") || strings.Contains(contentType, "jpg") {
			ext = "jpg"
		}
		data = parts[1]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to decode image data: %w", err)
	}
	if len(raw) == 0 {
		return nil, "", "", ErrNoImageData
	}
	return raw, contentType, ext, nil
}

func (s *snapshotService) SaveSnapshot(ctx context.Context, sessionID string, req *SnapshotSaveRequest, actorID string) (*SnapshotResponse, error) {
	if req == nil || strings.TrimSpace(req.ImageData) == "" {
		return nil, ErrNoImageData
	}

	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canManageSession(ctx, s.repo, session, actorID) {
		return nil, NewPermissionError(actorID, sessionID, "session", "save snapshot", "not the session owner")
	}

	raw, contentType, ext, err := decodeImageData(req.ImageData)
	if err != nil {
		return nil, err
	}

	// Every save writes a fresh versioned object. Earlier snapshots stay in
	// the store untouched; only the session pointer moves.
	key := fmt.Sprintf("snapshots/%s/%d.%s", sessionID, time.Now().UnixNano(), ext)
	if err := s.store.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	url := s.store.PublicURL(key)
	if err := s.repo.Session().UpdateSnapshot(ctx, nil, sessionID, url, key); err != nil {
		return nil, fmt.Errorf("failed to update snapshot reference: %w", err)
	}

	s.logger.InfoContext(ctx, "Snapshot saved",
		"session_id", sessionID,
		"key", key,
		"size_bytes", len(raw))

	publishEvent(ctx, s.events, s.logger, s.eventTopic, events.EventSnapshotSaved, map[string]interface{}{
		"session_id": sessionID,
		"key":        key,
	})

	return &SnapshotResponse{
		SessionID:   sessionID,
		SnapshotURL: url,
		IsSaved:     true,
		SavedAt:     time.Now().UTC(),
	}, nil
}

// loadSnapshot resolves the session's latest snapshot object for export.
func (s *snapshotService) loadSnapshot(ctx context.Context, sessionID, userID string) (*models.Session, io.ReadCloser, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canViewSession(ctx, s.repo, session, userID) {
		return nil, nil, NewPermissionError(userID, sessionID, "snapshot", "export", "not a participant")
	}
	if session.SnapshotKey == nil {
		return nil, nil, ErrNoSnapshot
	}

	reader, err := s.store.Get(ctx, *session.SnapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNoSnapshot
		}
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return session, reader, nil
}

func (s *snapshotService) ExportPDF(ctx context.Context, sessionID, userID string) (*ExportResult, error) {
	session, reader, err := s.loadSnapshot(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot image: %w", err)
	}

	// Flatten transparency onto white so erased regions print blank instead
	// of black.
	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, flat); err != nil {
		return nil, fmt.Errorf("failed to encode flattened image: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(session.Title, true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("snapshot", opts, &imgBuf)

	// Fit the image inside the printable area, preserving aspect ratio.
	const pageW, pageH, margin = 297.0, 210.0, 10.0
	availW, availH := pageW-2*margin, pageH-2*margin
	imgW, imgH := float64(bounds.Dx()), float64(bounds.Dy())
	scale := availW / imgW
	if availH/imgH < scale {
		scale = availH / imgH
	}
	w, h := imgW*scale, imgH*scale
	x := margin + (availW-w)/2
	y := margin + (availH-h)/2
	pdf.ImageOptions("snapshot", x, y, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return &ExportResult{
		Reader:      io.NopCloser(&out),
		ContentType: "application/pdf",
		FileName:    fmt.Sprintf("whiteboard-%s.pdf", session.JoinCode),
	}, nil
}

func (s *snapshotService) ExportRaw(ctx context.Context, sessionID, userID string) (*ExportResult, error) {
	session, reader, err := s.loadSnapshot(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	contentType := "image/png"
	ext := "png"
	if strings.HasSuffix(*session.SnapshotKey, ".jpg") {
		contentType = "image/jpeg"
		ext = "jpg"
	}

	return &ExportResult{
		Reader:      reader,
		ContentType: contentType,
		FileName:    fmt.Sprintf("whiteboard-%s.%s", session.JoinCode, ext),
	}, nil
}

func (s *snapshotService) OfflineView(ctx context.Context, sessionID, userID string) (*SnapshotResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !canViewSession(ctx, s.repo, session, userID) {
		return nil, NewPermissionError(userID, sessionID, "snapshot", "view offline", "not a participant")
	}
	if !session.IsOfflineAvailable || session.SnapshotURL == nil {
		return nil, ErrNoSnapshot
	}

	return &SnapshotResponse{
		SessionID:   sessionID,
		SnapshotURL: *session.SnapshotURL,
		IsSaved:     session.IsSaved,
		SavedAt:     session.UpdatedAt,
	}, nil
}
