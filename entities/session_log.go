package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"live-classroom/constant"
)

// SessionLog is the append-only audit trail. Nothing in-process reads it.
type SessionLog struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionId uuid.UUID         `json:"session_id" gorm:"type:uuid;not null;index:idx_session_logs_session_id"`
	Event     constant.LogEvent `json:"event" gorm:"type:varchar(40);not null"`
	Metadata  datatypes.JSON    `json:"metadata" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (SessionLog) TableName() string {
	return "session_logs"
}
