package service

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"live-classroom/constant"
	"live-classroom/dto"
	"live-classroom/entities"
	"live-classroom/repository"
)

// fakeRepo is an in-memory stand-in for the gorm repository, close enough to
// the real semantics for service-level tests: record-not-found errors, the
// one-live-session rule, and upsert-by-(session,user).
type fakeRepo struct {
	classes      map[uuid.UUID]*entities.Class
	sessions     map[uuid.UUID]*entities.ClassSession
	participants []*entities.SessionParticipant
	chats        []*entities.SessionChat
	modEvents    []*entities.ModerationEvent
	logs         []*entities.SessionLog
	jobs         []*entities.Job
	lastSent     map[uuid.UUID]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		classes:  map[uuid.UUID]*entities.Class{},
		sessions: map[uuid.UUID]*entities.ClassSession{},
		lastSent: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeRepo) GetDB() *gorm.DB { return nil }
func (f *fakeRepo) Migrate() error  { return nil }

func (f *fakeRepo) FindClassById(ctx context.Context, id uuid.UUID) (*entities.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return class, nil
}

func (f *fakeRepo) MarkClassInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	class, ok := f.classes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	class.Status = constant.ClassStatusInProgress
	class.ActualStartTime = &startedAt
	return nil
}

func (f *fakeRepo) MarkClassCompleted(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	class, ok := f.classes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	class.Status = constant.ClassStatusCompleted
	class.ActualEndTime = &endedAt
	return nil
}

func (f *fakeRepo) CreateLiveSession(ctx context.Context, session *entities.ClassSession) error {
	for _, existing := range f.sessions {
		if existing.ClassId == session.ClassId && existing.Status == constant.SessionStatusLive {
			return repository.ErrLiveSessionExists
		}
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) FindSessionById(ctx context.Context, id uuid.UUID) (*entities.ClassSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (f *fakeRepo) FindLiveSessionsByClassId(ctx context.Context, classId uuid.UUID) ([]*entities.ClassSession, error) {
	var out []*entities.ClassSession
	for _, session := range f.sessions {
		if session.ClassId == classId && session.Status == constant.SessionStatusLive {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindSessionByRoomName(ctx context.Context, roomName string) (*entities.ClassSession, error) {
	for _, session := range f.sessions {
		if session.RoomName == roomName {
			return session, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkSessionEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.Status = constant.SessionStatusEnded
	session.EndedAt = &endedAt
	return nil
}

func (f *fakeRepo) SetSessionRecordingUrl(ctx context.Context, id uuid.UUID, recordingUrl string) error {
	session, ok := f.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.RecordingUrl = &recordingUrl
	return nil
}

func (f *fakeRepo) UpsertParticipant(ctx context.Context, participant *entities.SessionParticipant) error {
	for _, existing := range f.participants {
		if existing.SessionId == participant.SessionId && existing.UserId == participant.UserId {
			existing.LeftAt = nil
			return nil
		}
	}
	copied := *participant
	f.participants = append(f.participants, &copied)
	return nil
}

func (f *fakeRepo) FindParticipant(ctx context.Context, sessionId, userId uuid.UUID) (*entities.SessionParticipant, error) {
	for _, p := range f.participants {
		if p.SessionId == sessionId && p.UserId == userId {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CountParticipants(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	var count int64
	for _, p := range f.participants {
		if p.SessionId == sessionId {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) ListOpenParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entities.SessionParticipant, error) {
	var out []*entities.SessionParticipant
	for _, p := range f.participants {
		if p.SessionId == sessionId && p.LeftAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) CloseParticipant(ctx context.Context, id uuid.UUID, leftAt time.Time, durationSeconds int) error {
	for _, p := range f.participants {
		if p.ID == id {
			p.LeftAt = &leftAt
			p.DurationSeconds = &durationSeconds
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateChat(ctx context.Context, chat *entities.SessionChat) error {
	copied := *chat
	f.chats = append(f.chats, &copied)
	return nil
}

func (f *fakeRepo) ListChatsBySessionId(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entities.SessionChat, error) {
	var out []*entities.SessionChat
	for _, chat := range f.chats {
		if chat.SessionId == sessionId {
			out = append(out, chat)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateModerationEvent(ctx context.Context, event *entities.ModerationEvent) error {
	copied := *event
	f.modEvents = append(f.modEvents, &copied)
	return nil
}

func (f *fakeRepo) AcquireChatSlot(ctx context.Context, userId uuid.UUID, now time.Time, window time.Duration) (bool, error) {
	if last, ok := f.lastSent[userId]; ok && now.Sub(last) < window {
		return false, nil
	}
	f.lastSent[userId] = now
	return true, nil
}

func (f *fakeRepo) AppendLog(ctx context.Context, sessionId uuid.UUID, event constant.LogEvent, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	f.logs = append(f.logs, &entities.SessionLog{
		ID:        uuid.New(),
		SessionId: sessionId,
		Event:     event,
		Metadata:  raw,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeRepo) CreateJob(ctx context.Context, job *entities.Job) error {
	copied := *job
	f.jobs = append(f.jobs, &copied)
	return nil
}

func (f *fakeRepo) hasLog(sessionId uuid.UUID, event constant.LogEvent) bool {
	for _, entry := range f.logs {
		if entry.SessionId == sessionId && entry.Event == event {
			return true
		}
	}
	return false
}

type fakeRelay struct {
	rooms     []string
	egressId  string
	started   []string
	stopped   []string
	createErr error
}

func (f *fakeRelay) CreateRoom(ctx context.Context, roomName string, maxParticipants int) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rooms = append(f.rooms, roomName)
	return nil
}

func (f *fakeRelay) StartRoomCompositeEgress(ctx context.Context, roomName, objectPath string) (string, error) {
	f.started = append(f.started, objectPath)
	if f.egressId == "" {
		return "EG_test", nil
	}
	return f.egressId, nil
}

func (f *fakeRelay) StopEgress(ctx context.Context, egressId string) error {
	f.stopped = append(f.stopped, egressId)
	return nil
}

type fakePublisher struct {
	published []dto.TranscodeJobMessage
	err       error
}

func (f *fakePublisher) PublishTranscodeJob(ctx context.Context, message dto.TranscodeJobMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message)
	return nil
}

type fakePresigner struct {
	lastObject string
}

func (f *fakePresigner) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	f.lastObject = objectName
	return url.Parse("https://storage.example/" + bucketName + "/" + objectName + "?signed=1")
}
