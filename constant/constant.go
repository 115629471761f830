package constant

type SessionStatus string

const (
	SessionStatusLive  SessionStatus = "live"
	SessionStatusEnded SessionStatus = "ended"
)

type ClassStatus string

const (
	ClassStatusScheduled  ClassStatus = "scheduled"
	ClassStatusInProgress ClassStatus = "in_progress"
	ClassStatusCompleted  ClassStatus = "completed"
)

type ParticipantRole string

const (
	RoleTeacher ParticipantRole = "teacher"
	RoleStudent ParticipantRole = "student"
)

func (r ParticipantRole) String() string {
	return string(r)
}

type LogEvent string

const (
	LogSessionCreated     LogEvent = "session_created"
	LogParticipantJoined  LogEvent = "participant_joined"
	LogSessionEnded       LogEvent = "session_ended"
	LogRecordingStarted   LogEvent = "recording_started"
	LogRecordingStopped   LogEvent = "recording_stopped"
	LogRecordingCompleted LogEvent = "recording_completed"
)

type ModerationReason string

const (
	ReasonEmailDetected ModerationReason = "email_detected"
	ReasonPhoneDetected ModerationReason = "phone_detected"
)

// RoomCapacity is a product decision, not a relay limit: one teacher plus
// one student per room.
const RoomCapacity = 2

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeTranscoder JobType = "transcoder"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// CtxUserId is the gin context key the auth middleware stores the resolved
// caller id under.
const CtxUserId = "user_id"
