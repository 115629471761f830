package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"live-classroom/constant"
	"live-classroom/entities"
)

// ErrLiveSessionExists is returned by CreateLiveSession when the class
// already has a live session. The conditional insert is the enforcement
// point, not any in-process check.
var ErrLiveSessionExists = errors.New("class already has a live session")

type Repository interface {
	GetDB() *gorm.DB
	Migrate() error

	FindClassById(ctx context.Context, id uuid.UUID) (*entities.Class, error)
	MarkClassInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	MarkClassCompleted(ctx context.Context, id uuid.UUID, endedAt time.Time) error

	CreateLiveSession(ctx context.Context, session *entities.ClassSession) error
	FindSessionById(ctx context.Context, id uuid.UUID) (*entities.ClassSession, error)
	FindLiveSessionsByClassId(ctx context.Context, classId uuid.UUID) ([]*entities.ClassSession, error)
	FindSessionByRoomName(ctx context.Context, roomName string) (*entities.ClassSession, error)
	MarkSessionEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	SetSessionRecordingUrl(ctx context.Context, id uuid.UUID, url string) error

	UpsertParticipant(ctx context.Context, participant *entities.SessionParticipant) error
	FindParticipant(ctx context.Context, sessionId, userId uuid.UUID) (*entities.SessionParticipant, error)
	CountParticipants(ctx context.Context, sessionId uuid.UUID) (int64, error)
	ListOpenParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entities.SessionParticipant, error)
	CloseParticipant(ctx context.Context, id uuid.UUID, leftAt time.Time, durationSeconds int) error

	CreateChat(ctx context.Context, chat *entities.SessionChat) error
	ListChatsBySessionId(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entities.SessionChat, error)
	CreateModerationEvent(ctx context.Context, event *entities.ModerationEvent) error

	AcquireChatSlot(ctx context.Context, userId uuid.UUID, now time.Time, window time.Duration) (bool, error)

	AppendLog(ctx context.Context, sessionId uuid.UUID, event constant.LogEvent, metadata map[string]interface{}) error

	CreateJob(ctx context.Context, job *entities.Job) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) Repository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Migrate() error {
	err := r.db.AutoMigrate(
		&entities.Class{},
		&entities.ClassSession{},
		&entities.SessionParticipant{},
		&entities.SessionChat{},
		&entities.ModerationEvent{},
		&entities.SessionLog{},
		&entities.ChatRateLimit{},
		&entities.Job{},
	)
	if err != nil {
		return err
	}
	// AutoMigrate cannot express a partial index; this is what actually
	// guards against two concurrent creates for one class.
	return r.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_live_session_per_class
		ON class_sessions (class_id) WHERE status = 'live'`).Error
}

func (r *repo) FindClassById(ctx context.Context, id uuid.UUID) (*entities.Class, error) {
	class := &entities.Class{}
	err := r.db.WithContext(ctx).First(class, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return class, nil
}

func (r *repo) MarkClassInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.Class{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            constant.ClassStatusInProgress,
		"actual_start_time": startedAt,
	}).Error
}

func (r *repo) MarkClassCompleted(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.Class{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          constant.ClassStatusCompleted,
		"actual_end_time": endedAt,
	}).Error
}

func (r *repo) CreateLiveSession(ctx context.Context, session *entities.ClassSession) error {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO class_sessions (id, class_id, status, room_name, started_at, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, now(), now()
		WHERE NOT EXISTS (
			SELECT 1 FROM class_sessions WHERE class_id = ? AND status = ?
		)`,
		session.ID, session.ClassId, session.Status, session.RoomName, session.StartedAt,
		session.ClassId, constant.SessionStatusLive,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLiveSessionExists
	}
	return nil
}

func (r *repo) FindSessionById(ctx context.Context, id uuid.UUID) (*entities.ClassSession, error) {
	session := &entities.ClassSession{}
	err := r.db.WithContext(ctx).First(session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repo) FindLiveSessionsByClassId(ctx context.Context, classId uuid.UUID) ([]*entities.ClassSession, error) {
	var sessions []*entities.ClassSession
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND status = ?", classId, constant.SessionStatusLive).
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) FindSessionByRoomName(ctx context.Context, roomName string) (*entities.ClassSession, error) {
	session := &entities.ClassSession{}
	err := r.db.WithContext(ctx).First(session, "room_name = ?", roomName).Error
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repo) MarkSessionEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.ClassSession{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":   constant.SessionStatusEnded,
		"ended_at": endedAt,
	}).Error
}

func (r *repo) SetSessionRecordingUrl(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&entities.ClassSession{}).Where("id = ?", id).
		Update("recording_url", url).Error
}

func (r *repo) UpsertParticipant(ctx context.Context, participant *entities.SessionParticipant) error {
	// Rejoin clears left_at on the existing row; joined_at and role stay as
	// first recorded. The conflict target makes concurrent rejoins safe.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"left_at": nil}),
	}).Create(participant).Error
}

func (r *repo) FindParticipant(ctx context.Context, sessionId, userId uuid.UUID) (*entities.SessionParticipant, error) {
	participant := &entities.SessionParticipant{}
	err := r.db.WithContext(ctx).First(participant, "session_id = ? AND user_id = ?", sessionId, userId).Error
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func (r *repo) CountParticipants(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.SessionParticipant{}).
		Where("session_id = ?", sessionId).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListOpenParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entities.SessionParticipant, error) {
	var participants []*entities.SessionParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND left_at IS NULL", sessionId).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *repo) CloseParticipant(ctx context.Context, id uuid.UUID, leftAt time.Time, durationSeconds int) error {
	return r.db.WithContext(ctx).Model(&entities.SessionParticipant{}).Where("id = ?", id).Updates(map[string]interface{}{
		"left_at":          leftAt,
		"duration_seconds": durationSeconds,
	}).Error
}

func (r *repo) CreateChat(ctx context.Context, chat *entities.SessionChat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *repo) ListChatsBySessionId(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entities.SessionChat, error) {
	var chats []*entities.SessionChat
	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *repo) CreateModerationEvent(ctx context.Context, event *entities.ModerationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// AcquireChatSlot advances the sender's rate-limit row iff the window has
// elapsed. The guarded UPDATE is atomic, so the cooldown holds under
// concurrent sends and across handler instances.
func (r *repo) AcquireChatSlot(ctx context.Context, userId uuid.UUID, now time.Time, window time.Duration) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Exec(`UPDATE chat_rate_limits SET last_sent_at = ? WHERE user_id = ? AND last_sent_at <= ?`,
		now, userId, now.Add(-window))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	ins := db.Exec(`INSERT INTO chat_rate_limits (user_id, last_sent_at) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`,
		userId, now)
	if ins.Error != nil {
		return false, ins.Error
	}
	return ins.RowsAffected == 1, nil
}

func (r *repo) AppendLog(ctx context.Context, sessionId uuid.UUID, event constant.LogEvent, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&entities.SessionLog{
		ID:        uuid.New(),
		SessionId: sessionId,
		Event:     event,
		Metadata:  raw,
	}).Error
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}
