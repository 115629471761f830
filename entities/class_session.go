package entities

import (
	"time"

	"github.com/google/uuid"
	"live-classroom/constant"
)

// ClassSession is one live-session attempt for a class. The partial unique
// index keeps at most one live row per class; room_name never changes once
// the row exists.
type ClassSession struct {
	ID           uuid.UUID              `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ClassId      uuid.UUID              `json:"class_id" gorm:"type:uuid;not null;index:idx_class_sessions_class_id"`
	Status       constant.SessionStatus `json:"status" gorm:"type:varchar(10);not null;default:'live';index:idx_class_sessions_status"`
	RoomName     string                 `json:"room_name" gorm:"type:varchar(255);not null;uniqueIndex:uniq_class_sessions_room_name"`
	StartedAt    time.Time              `json:"started_at" gorm:"type:timestamptz;not null"`
	EndedAt      *time.Time             `json:"ended_at" gorm:"type:timestamptz"`
	RecordingUrl *string                `json:"recording_url" gorm:"type:varchar(500)"`
	CreatedAt    time.Time              `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time              `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (ClassSession) TableName() string {
	return "class_sessions"
}
