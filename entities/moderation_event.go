package entities

import (
	"time"

	"github.com/google/uuid"
	"live-classroom/constant"
)

type ModerationEvent struct {
	ID              uuid.UUID                 `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionId       uuid.UUID                 `json:"session_id" gorm:"type:uuid;not null;index:idx_moderation_events_session_id"`
	UserId          uuid.UUID                 `json:"user_id" gorm:"type:uuid;not null"`
	OriginalMessage string                    `json:"original_message" gorm:"type:text;not null"`
	Reason          constant.ModerationReason `json:"reason" gorm:"type:varchar(30);not null"`
	CreatedAt       time.Time                 `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (ModerationEvent) TableName() string {
	return "moderation_events"
}
