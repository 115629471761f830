package dto

import (
	"time"

	"github.com/google/uuid"
	"live-classroom/constant"
)

type CreateSessionRequest struct {
	ClassId uuid.UUID `json:"class_id" binding:"required"`
}

type CreateSessionResponse struct {
	SessionId  uuid.UUID `json:"session_id"`
	MediaToken string    `json:"media_token"`
	RelayUrl   string    `json:"relay_url"`
	RoomName   string    `json:"room_name"`
}

// SessionSnapshot is the client-facing view of a ClassSession.
type SessionSnapshot struct {
	ID           uuid.UUID              `json:"id"`
	ClassId      uuid.UUID              `json:"class_id"`
	Status       constant.SessionStatus `json:"status"`
	RoomName     string                 `json:"room_name"`
	StartedAt    time.Time              `json:"started_at"`
	EndedAt      *time.Time             `json:"ended_at"`
	RecordingUrl *string                `json:"recording_url"`
}

type JoinSessionResponse struct {
	MediaToken string          `json:"media_token"`
	RelayUrl   string          `json:"relay_url"`
	RoomName   string          `json:"room_name"`
	Session    SessionSnapshot `json:"session"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionId uuid.UUID `json:"session_id"`
	SenderId  uuid.UUID `json:"sender_id"`
	Message   string    `json:"message"`
	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type StopRecordingRequest struct {
	EgressId string `json:"egress_id" binding:"required"`
}

// EgressEvent is the relay webhook payload, discriminated by Event. Shapes
// other than the recognized event names are rejected explicitly.
type EgressEvent struct {
	Event      string      `json:"event"`
	EgressInfo *EgressInfo `json:"egressInfo"`
}

type EgressInfo struct {
	EgressId    string       `json:"egress_id"`
	RoomName    string       `json:"room_name"`
	Status      string       `json:"status"`
	FileResults []FileResult `json:"file_results"`
}

type FileResult struct {
	Filename    string `json:"filename"`
	DownloadUrl string `json:"download_url"`
	Size        int64  `json:"size"`
}

// TranscodeJobMessage matches the contract of the transcode worker's queue.
type TranscodeJobMessage struct {
	JobId      uuid.UUID `json:"jobId"`
	ObjectPath string    `json:"objectPath"`
	FileName   string    `json:"fileName"`
}
