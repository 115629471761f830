package entities

import (
	"time"

	"github.com/google/uuid"
)

// SessionChat holds the sanitized message text. The original text of a
// blocked message lives only in the matching ModerationEvent.
type SessionChat struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionId uuid.UUID `json:"session_id" gorm:"type:uuid;not null;index:idx_session_chats_session_id"`
	SenderId  uuid.UUID `json:"sender_id" gorm:"type:uuid;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	IsBlocked bool      `json:"is_blocked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (SessionChat) TableName() string {
	return "session_chats"
}
