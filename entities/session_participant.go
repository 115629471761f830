package entities

import (
	"time"

	"github.com/google/uuid"
	"live-classroom/constant"
)

// SessionParticipant is one row per (session, user). Rejoins clear left_at on
// the existing row instead of inserting, so the composite unique index is the
// identity of the record.
type SessionParticipant struct {
	ID              uuid.UUID                `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionId       uuid.UUID                `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:uniq_session_participants_session_user"`
	UserId          uuid.UUID                `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uniq_session_participants_session_user"`
	Role            constant.ParticipantRole `json:"role" gorm:"type:varchar(10);not null"`
	JoinedAt        time.Time                `json:"joined_at" gorm:"type:timestamptz;not null"`
	LeftAt          *time.Time               `json:"left_at" gorm:"type:timestamptz"`
	DurationSeconds *int                     `json:"duration_seconds" gorm:"type:integer"`
}

func (SessionParticipant) TableName() string {
	return "session_participants"
}
