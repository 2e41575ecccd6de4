package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"gorm.io/datatypes"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Attempts before giving up on a unique join code. Collisions are rare
	// at this code space; repeated conflicts indicate a systemic problem.
	joinCodeMaxAttempts = 5
)

// generateJoinCode returns a random uppercase alphanumeric code. Each
// character is drawn with rand.Int so every alphabet position is equally
// likely.
func generateJoinCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(joinCodeAlphabet)))
	buf := make([]byte, joinCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to draw random index: %w", err)
		}
		buf[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// buildJoinURL renders the client-facing join link for a session code.
func buildJoinURL(publicURL, code string) string {
	return fmt.Sprintf("%s/join/%s", strings.TrimRight(publicURL, "/"), code)
}

// settingsToJSON converts the free-form settings map for storage. A nil map
// stores as SQL NULL.
func settingsToJSON(settings map[string]interface{}) (datatypes.JSON, error) {
	if settings == nil {
		return nil, nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// canManageSession reports whether userID may administer the session: the
// owner always can, admins can everywhere.
func canManageSession(ctx context.Context, repo repositories.Repository, session *models.Session, userID string) bool {
	if session.IsOwnedBy(userID) {
		return true
	}
	isAdmin, err := repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return false
	}
	return isAdmin
}

// canViewSession reports whether userID may read session content: managers
// and participants can.
func canViewSession(ctx context.Context, repo repositories.Repository, session *models.Session, userID string) bool {
	if canManageSession(ctx, repo, session, userID) {
		return true
	}
	_, err := repo.Participant().GetBySessionAndUser(ctx, nil, session.ID, userID)
	return err == nil
}

// publishEvent emits a domain event. Publishing is best-effort: a broker
// outage must not fail the request that already committed.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, topic, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(ctx, topic, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"event_id", event.ID,
			"error", err)
	}
}

// toSessionResponse decorates a session for the given viewer.
func toSessionResponse(ctx context.Context, repo repositories.Repository, session *models.Session, userID, publicURL string) *SessionResponse {
	resp := &SessionResponse{
		Session: session,
		IsOwner: session.IsOwnedBy(userID),
	}
	resp.CanManage = resp.IsOwner || canManageSession(ctx, repo, session, userID)
	if session.IsActive {
		resp.JoinURL = buildJoinURL(publicURL, session.JoinCode)
	}
	return resp
}
