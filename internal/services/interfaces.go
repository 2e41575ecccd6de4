package services

import (
	"context"
	"io"
	"time"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

// ===== REQUEST DTOS =====
// Request validation lives in the validator package; services alias the types
// so handlers and services share one definition.

type CreateSessionRequest = validator.SessionCreateRequest
type UpdateSessionRequest = validator.SessionUpdateRequest
type JoinSessionRequest = validator.JoinSessionRequest
type DuplicateSessionRequest = validator.SessionDuplicateRequest
type ToggleDrawRequest = validator.ToggleDrawRequest
type PresenceSyncRequest = validator.PresenceSyncRequest
type PostMessageRequest = validator.PostMessageRequest
type AnnouncementRequest = validator.AnnouncementRequest
type SnapshotSaveRequest = validator.SnapshotSaveRequest

// ===== RESPONSE DTOS =====

// SessionResponse decorates a session with viewer-dependent fields.
type SessionResponse struct {
	*models.Session
	JoinURL   string `json:"join_url,omitempty"`
	IsOwner   bool   `json:"is_owner"`
	CanManage bool   `json:"can_manage"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type ParticipantResponse struct {
	*models.Participant
}

// JoinResponse is the outcome of redeeming a join code. Created is false when
// the user was already a member and the join only refreshed activity.
type JoinResponse struct {
	Session     *SessionResponse     `json:"session"`
	Participant *ParticipantResponse `json:"participant"`
	Created     bool                 `json:"created"`
}

// PresenceSyncResponse reports one presence sweep: how many draw grants were
// revoked and the known membership split into present and absent, sorted.
type PresenceSyncResponse struct {
	RevokedCount int64    `json:"revoked_count"`
	Present      []string `json:"present"`
	Absent       []string `json:"absent"`
}

type MessageResponse struct {
	*models.Message
}

type TranscriptResponse struct {
	RoomID   uint               `json:"room_id"`
	Messages []*MessageResponse `json:"messages"`
}

type NotificationResponse struct {
	*models.Notification
	IsRead bool `json:"is_read"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	UnreadCount   int64                   `json:"unread_count"`
}

// AnnouncementResult reports an announcement fan-out. Created counts new
// deliveries; recipients already holding an identical notification are
// counted in Recipients but not in Created.
type AnnouncementResult struct {
	Recipients int `json:"recipients"`
	Created    int `json:"created"`
}

type SnapshotResponse struct {
	SessionID   string    `json:"session_id"`
	SnapshotURL string    `json:"snapshot_url"`
	IsSaved     bool      `json:"is_saved"`
	SavedAt     time.Time `json:"saved_at"`
}

// ExportResult is a streamed export artifact. Callers own closing the reader.
type ExportResult struct {
	Reader      io.ReadCloser
	ContentType string
	FileName    string
}

type UploadResponse struct {
	*models.UploadedFile
}

// ParticipantActivityEntry is one teacher-dashboard row with the derived
// activity timestamp resolved.
type ParticipantActivityEntry struct {
	repositories.ParticipantActivity
	LastActiveAt time.Time `json:"last_active_at"`
}

type TeacherDashboardResponse struct {
	Stats          *repositories.OwnerStats `json:"stats"`
	ClassCount     int64                    `json:"class_count"`
	RecentSessions []*SessionResponse       `json:"recent_sessions"`
}

// StudentDashboardResponse lists the sessions a student belongs to plus their
// unread announcement count.
type StudentDashboardResponse struct {
	Memberships        []*ParticipantResponse `json:"memberships"`
	ActiveSessionCount int                    `json:"active_session_count"`
	UnreadCount        int64                  `json:"unread_count"`
}

// ===== SERVICE INTERFACES =====

// SessionService manages the whiteboard session lifecycle.
type SessionService interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest, ownerID string) (*SessionResponse, error)
	GetSession(ctx context.Context, id, userID string) (*SessionResponse, error)
	ListSessions(ctx context.Context, ownerID string, filters repositories.SessionFilters) (*SessionListResponse, error)
	UpdateSession(ctx context.Context, id string, req *UpdateSessionRequest, userID string) (*SessionResponse, error)

	// EndSession deactivates the session. The row survives for history and
	// saved-snapshot access but no longer accepts joins.
	EndSession(ctx context.Context, id, userID string) error

	// DuplicateSession copies a saved session into a new one with a fresh
	// join code and a copied snapshot object.
	DuplicateSession(ctx context.Context, id string, req *DuplicateSessionRequest, userID string) (*SessionResponse, error)

	// JoinQRCode renders the session's join link as a PNG QR code.
	JoinQRCode(ctx context.Context, id, userID string) ([]byte, error)
}

// ParticipantService manages membership and per-participant counters.
type ParticipantService interface {
	// JoinByCode redeems a join code. Joining twice is idempotent.
	JoinByCode(ctx context.Context, req *JoinSessionRequest, userID string) (*JoinResponse, error)

	ListParticipants(ctx context.Context, sessionID, userID string) ([]*ParticipantResponse, error)

	// RecordStroke bumps the caller's stroke counter. Draw permission is
	// required unless the caller owns the session.
	RecordStroke(ctx context.Context, sessionID, userID string) error
}

// PermissionService manages draw grants, presence sweeps and the chat switch.
// All operations are owner-only (admins pass).
type PermissionService interface {
	// ToggleDraw sets one participant's draw flag to exactly the requested
	// value.
	ToggleDraw(ctx context.Context, sessionID string, req *ToggleDrawRequest, actorID string) (*ParticipantResponse, error)

	// SyncPresence revokes draw permission from every absent holder in one
	// guarded statement.
	SyncPresence(ctx context.Context, sessionID string, req *PresenceSyncRequest, actorID string) (*PresenceSyncResponse, error)

	// ToggleChat flips the session-wide chat switch and returns the updated
	// session.
	ToggleChat(ctx context.Context, sessionID, actorID string) (*SessionResponse, error)
}

// SnapshotService persists and exports whiteboard canvas images. Every save
// writes a new versioned object; snapshots are never overwritten.
type SnapshotService interface {
	SaveSnapshot(ctx context.Context, sessionID string, req *SnapshotSaveRequest, actorID string) (*SnapshotResponse, error)

	// ExportPDF flattens the latest snapshot onto a white A4 landscape page.
	ExportPDF(ctx context.Context, sessionID, userID string) (*ExportResult, error)

	// ExportRaw streams the latest snapshot object as stored.
	ExportRaw(ctx context.Context, sessionID, userID string) (*ExportResult, error)

	// OfflineView returns the saved snapshot reference for offline replay.
	OfflineView(ctx context.Context, sessionID, userID string) (*SnapshotResponse, error)
}

// ChatService manages the per-session chat room and its messages.
type ChatService interface {
	// PostMessage appends a message to the session's room. Students are
	// rejected while chat is disabled; the owner always passes.
	PostMessage(ctx context.Context, sessionID string, req *PostMessageRequest, senderID string) (*MessageResponse, error)

	GetTranscript(ctx context.Context, sessionID, userID string, filters repositories.MessageFilters) (*TranscriptResponse, error)
}

// NotificationService delivers announcements and tracks read state.
type NotificationService interface {
	// Announce fans the announcement out to every participant. Delivery is
	// idempotent per recipient.
	Announce(ctx context.Context, sessionID string, req *AnnouncementRequest, actorID string) (*AnnouncementResult, error)

	ListNotifications(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

// UploadService stores session attachments.
type UploadService interface {
	// Upload stores the file and records it. Students need draw permission;
	// the owner always passes.
	Upload(ctx context.Context, sessionID, uploaderID, fileName, contentType string, r io.Reader, size int64) (*UploadResponse, error)

	ListUploads(ctx context.Context, sessionID, userID string) ([]*UploadResponse, error)
}

// ClassCountProvider reports how many classes a teacher runs. The count lives
// in an external system; the default provider returns zero.
type ClassCountProvider interface {
	CountClasses(ctx context.Context, teacherID string) (int64, error)
}

// DashboardService aggregates activity views for teachers and students.
type DashboardService interface {
	TeacherOverview(ctx context.Context, teacherID string) (*TeacherDashboardResponse, error)
	StudentOverview(ctx context.Context, studentID string) (*StudentDashboardResponse, error)

	// SessionActivity is the per-participant activity table for one session,
	// owner-only.
	SessionActivity(ctx context.Context, sessionID, userID string) ([]ParticipantActivityEntry, error)

	// ExportActivityReport renders the activity table as an xlsx workbook.
	ExportActivityReport(ctx context.Context, sessionID, userID string) (*ExportResult, error)
}

// ===== SERVICE MANAGER =====

// ServiceManager provides access to all services.
type ServiceManager interface {
	Session() SessionService
	Participant() ParticipantService
	Permission() PermissionService
	Snapshot() SnapshotService
	Chat() ChatService
	Notification() NotificationService
	Upload() UploadService
	Dashboard() DashboardService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
