package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChatRateLimit is one row per sender holding the timestamp of the last
// accepted send. Keeping it in the store makes the 1000 ms window hold
// across instances and restarts.
type ChatRateLimit struct {
	UserId     uuid.UUID `json:"user_id" gorm:"type:uuid;primary_key"`
	LastSentAt time.Time `json:"last_sent_at" gorm:"type:timestamptz;not null"`
}

func (ChatRateLimit) TableName() string {
	return "chat_rate_limits"
}
