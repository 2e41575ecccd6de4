package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/events"
	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
	"github.com/CWB-F-2025/whiteboard-service/internal/storage"
	"github.com/CWB-F-2025/whiteboard-service/internal/validator"
)

// In-memory repository fakes. Transactions are pass-through; the tx argument
// is ignored everywhere, matching how services call the real repositories.

type fakeRepository struct {
	sessions      *fakeSessionRepo
	participants  *fakeParticipantRepo
	chatRooms     *fakeChatRoomRepo
	messages      *fakeMessageRepo
	notifications *fakeNotificationRepo
	uploads       *fakeUploadRepo
	users         *fakeUserRepo
	dashboard     *fakeDashboardRepo
}

func newFakeRepository() *fakeRepository {
	messages := &fakeMessageRepo{}
	return &fakeRepository{
		sessions:      &fakeSessionRepo{sessions: make(map[string]*models.Session)},
		participants:  &fakeParticipantRepo{},
		chatRooms:     &fakeChatRoomRepo{rooms: make(map[string]*models.ChatRoom)},
		messages:      messages,
		notifications: &fakeNotificationRepo{},
		uploads:       &fakeUploadRepo{},
		users:         &fakeUserRepo{users: make(map[string]*models.User)},
		dashboard:     &fakeDashboardRepo{},
	}
}

func (r *fakeRepository) Session() repositories.SessionRepository           { return r.sessions }
func (r *fakeRepository) Participant() repositories.ParticipantRepository   { return r.participants }
func (r *fakeRepository) ChatRoom() repositories.ChatRoomRepository         { return r.chatRooms }
func (r *fakeRepository) Message() repositories.MessageRepository           { return r.messages }
func (r *fakeRepository) Notification() repositories.NotificationRepository { return r.notifications }
func (r *fakeRepository) Upload() repositories.UploadRepository             { return r.uploads }
func (r *fakeRepository) User() repositories.UserRepository                 { return r.users }
func (r *fakeRepository) Dashboard() repositories.DashboardRepository      { return r.dashboard }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// ===== sessions =====

type fakeSessionRepo struct {
	sessions map[string]*models.Session

	// createErrs is popped once per Create call to simulate conflicts.
	createErrs []error
}

func (r *fakeSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range r.sessions {
		if existing.JoinCode == session.JoinCode {
			return gorm.ErrDuplicatedKey
		}
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Session, error) {
	for _, session := range r.sessions {
		if session.JoinCode == strings.ToUpper(code) && session.IsActive {
			return session, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	var out []*models.Session
	for _, session := range r.sessions {
		if session.OwnerID == ownerID {
			out = append(out, session)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	if _, ok := r.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	session.UpdatedAt = time.Now()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) UpdateSnapshot(ctx context.Context, tx *gorm.DB, id, url, key string) error {
	session, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.SnapshotURL = &url
	session.SnapshotKey = &key
	session.IsSaved = true
	session.IsOfflineAvailable = true
	return nil
}

func (r *fakeSessionRepo) SetChatEnabled(ctx context.Context, tx *gorm.DB, id string, enabled bool) error {
	session, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.ChatEnabled = enabled
	return nil
}

func (r *fakeSessionRepo) Deactivate(ctx context.Context, tx *gorm.DB, id string) error {
	session, ok := r.sessions[id]
	if !ok || !session.IsActive {
		return gorm.ErrRecordNotFound
	}
	session.IsActive = false
	return nil
}

func (r *fakeSessionRepo) ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	for _, session := range r.sessions {
		if session.JoinCode == strings.ToUpper(code) {
			return true, nil
		}
	}
	return false, nil
}

// ===== participants =====

type fakeParticipantRepo struct {
	participants []*models.Participant
	nextID       uint

	// afterRevoke, when set, runs once the revoke sweep has written. It lets
	// tests interleave a grant between the sweep and the partition read.
	afterRevoke func()
}

func (r *fakeParticipantRepo) find(sessionID, userID string) *models.Participant {
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *fakeParticipantRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, bool, error) {
	if existing := r.find(sessionID, userID); existing != nil {
		now := time.Now()
		existing.LastActive = &now
		return existing, false, nil
	}
	r.nextID++
	p := &models.Participant{
		ID:        r.nextID,
		SessionID: sessionID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}
	r.participants = append(r.participants, p)
	return p, true, nil
}

func (r *fakeParticipantRepo) GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID string) (*models.Participant, error) {
	if p := r.find(sessionID, userID); p != nil {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeParticipantRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) SetCanDraw(ctx context.Context, tx *gorm.DB, sessionID, userID string, canDraw bool) (int64, error) {
	p := r.find(sessionID, userID)
	if p == nil {
		return 0, nil
	}
	p.CanDraw = canDraw
	return 1, nil
}

func (r *fakeParticipantRepo) RevokeAbsentDraw(ctx context.Context, tx *gorm.DB, sessionID string, presentUserIDs []string) (int64, error) {
	present := make(map[string]bool, len(presentUserIDs))
	for _, id := range presentUserIDs {
		present[id] = true
	}
	var revoked int64
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.CanDraw && !present[p.UserID] {
			p.CanDraw = false
			revoked++
		}
	}
	if r.afterRevoke != nil {
		r.afterRevoke()
	}
	return revoked, nil
}

func (r *fakeParticipantRepo) IncrementStrokes(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error) {
	p := r.find(sessionID, userID)
	if p == nil {
		return 0, nil
	}
	p.StrokesCount++
	now := time.Now()
	p.LastActive = &now
	return 1, nil
}

func (r *fakeParticipantRepo) IncrementUploads(ctx context.Context, tx *gorm.DB, sessionID, userID string) (int64, error) {
	p := r.find(sessionID, userID)
	if p == nil {
		return 0, nil
	}
	p.UploadsCount++
	now := time.Now()
	p.LastActive = &now
	return 1, nil
}

// ===== chat =====

type fakeChatRoomRepo struct {
	rooms  map[string]*models.ChatRoom
	nextID uint
}

func (r *fakeChatRoomRepo) GetOrCreateForSession(ctx context.Context, tx *gorm.DB, session *models.Session) (*models.ChatRoom, error) {
	if room, ok := r.rooms[session.ID]; ok {
		return room, nil
	}
	r.nextID++
	sessionID := session.ID
	room := &models.ChatRoom{
		ID:        r.nextID,
		Name:      "Session: " + session.Title,
		ChatType:  models.ChatTypeSession,
		SessionID: &sessionID,
	}
	r.rooms[session.ID] = room
	return room, nil
}

func (r *fakeChatRoomRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ChatRoom, error) {
	for _, room := range r.rooms {
		if room.ID == id {
			return room, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMessageRepo struct {
	messages []*models.Message
	nextID   uint
}

func (r *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	r.nextID++
	message.ID = r.nextID
	message.Timestamp = time.Now()
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) ListByRoom(ctx context.Context, tx *gorm.DB, roomID uint, filters repositories.MessageFilters) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range r.messages {
		if m.RoomID != roomID {
			continue
		}
		if filters.Since != nil && !m.Timestamp.After(*filters.Since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMessageRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	return int64(len(r.messages)), nil
}

// ===== notifications =====

type fakeNotificationRepo struct {
	notifications []*models.Notification
	nextID        uint
}

func (r *fakeNotificationRepo) dedupKey(n *models.Notification) string {
	sessionID := ""
	if n.SessionID != nil {
		sessionID = *n.SessionID
	}
	return fmt.Sprintf("%s|%s|%s|%t", n.RecipientID, sessionID, n.Content, n.IsUrgent)
}

func (r *fakeNotificationRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, notification *models.Notification) (bool, error) {
	key := r.dedupKey(notification)
	for _, existing := range r.notifications {
		if r.dedupKey(existing) == key {
			*notification = *existing
			return false, nil
		}
	}
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	stored := *notification
	r.notifications = append(r.notifications, &stored)
	return true, nil
}

func (r *fakeNotificationRepo) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if filters.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, id uint, recipientID string) (int64, error) {
	for _, n := range r.notifications {
		if n.ID == id && n.RecipientID == recipientID && n.ReadAt == nil {
			now := time.Now()
			n.ReadAt = &now
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeNotificationRepo) UnreadCount(ctx context.Context, tx *gorm.DB, recipientID string) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// ===== uploads =====

type fakeUploadRepo struct {
	uploads []*models.UploadedFile
	nextID  uint
}

func (r *fakeUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *models.UploadedFile) error {
	r.nextID++
	upload.ID = r.nextID
	upload.UploadedAt = time.Now()
	r.uploads = append(r.uploads, upload)
	return nil
}

func (r *fakeUploadRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.UploadedFile, error) {
	var out []*models.UploadedFile
	for _, u := range r.uploads {
		if u.SessionID == sessionID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUploadRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	uploads, _ := r.ListBySession(ctx, tx, sessionID)
	return int64(len(uploads)), nil
}

// ===== users =====

type fakeUserRepo struct {
	users map[string]*models.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return r.List(ctx, filters)
}

func (r *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, ok := r.users[id]
	if !ok {
		return false, nil
	}
	return user.Role == role, nil
}

// ===== dashboard =====

type fakeDashboardRepo struct {
	activity []repositories.ParticipantActivity
	stats    *repositories.OwnerStats
	recent   []*models.Session
}

func (r *fakeDashboardRepo) GetParticipantActivity(ctx context.Context, tx *gorm.DB, sessionID string) ([]repositories.ParticipantActivity, error) {
	return r.activity, nil
}

func (r *fakeDashboardRepo) GetOwnerStats(ctx context.Context, tx *gorm.DB, ownerID string) (*repositories.OwnerStats, error) {
	if r.stats == nil {
		return &repositories.OwnerStats{}, nil
	}
	return r.stats, nil
}

func (r *fakeDashboardRepo) GetRecentSessions(ctx context.Context, tx *gorm.DB, ownerID string, limit int) ([]*models.Session, error) {
	return r.recent, nil
}

func (r *fakeDashboardRepo) CountActiveSessions(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	return int64(len(r.recent)), nil
}

// ===== test fixture =====

type serviceFixture struct {
	repo      *fakeRepository
	store     *storage.MemoryStore
	publisher *events.MockEventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &serviceFixture{
		repo:      newFakeRepository(),
		store:     storage.NewMemoryStore(""),
		publisher: events.NewMockEventPublisher(logger),
		validator: validator.New(),
		logger:    logger,
	}
}

// seedSession inserts an active session owned by ownerID.
func (f *serviceFixture) seedSession(id, ownerID, code string) *models.Session {
	session := &models.Session{
		ID:          id,
		Title:       "Algebra Review",
		OwnerID:     ownerID,
		JoinCode:    code,
		ChatEnabled: true,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	f.repo.sessions.sessions[id] = session
	return session
}

// seedParticipant inserts a membership row.
func (f *serviceFixture) seedParticipant(sessionID, userID string, canDraw bool) *models.Participant {
	f.repo.participants.nextID++
	p := &models.Participant{
		ID:        f.repo.participants.nextID,
		SessionID: sessionID,
		UserID:    userID,
		CanDraw:   canDraw,
		JoinedAt:  time.Now(),
	}
	f.repo.participants.participants = append(f.repo.participants.participants, p)
	return p
}

func (f *serviceFixture) eventsOfType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range f.publisher.GetPublishedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
