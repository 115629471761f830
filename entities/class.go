package entities

import (
	"time"

	"github.com/google/uuid"
	"live-classroom/constant"
)

// Class is the scheduling record a live session hangs off. The CRUD side of
// the platform owns most of its columns; this service only flips status and
// the actual start/end timestamps.
type Class struct {
	ID              uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TeacherId       uuid.UUID            `json:"teacher_id" gorm:"type:uuid;not null;index:idx_classes_teacher_id"`
	StudentId       uuid.UUID            `json:"student_id" gorm:"type:uuid;not null;index:idx_classes_student_id"`
	Subject         *string              `json:"subject" gorm:"type:varchar(255)"`
	Status          constant.ClassStatus `json:"status" gorm:"type:varchar(20);not null;default:'scheduled'"`
	ActualStartTime *time.Time           `json:"actual_start_time" gorm:"type:timestamptz"`
	ActualEndTime   *time.Time           `json:"actual_end_time" gorm:"type:timestamptz"`
	CreatedAt       time.Time            `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time            `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Class) TableName() string {
	return "classes"
}
