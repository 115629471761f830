package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"live-classroom/constant"
	"live-classroom/dto"
	"live-classroom/entities"
	"live-classroom/pkg/queue"
	"live-classroom/pkg/relay"
	"live-classroom/repository"
)

const downloadUrlTTL = 12 * time.Hour

// Recognized webhook event tags. Anything else is rejected explicitly with
// ErrUnrecognizedEvent rather than silently ignored.
const (
	eventEgressStarted = "egress_started"
	eventEgressUpdated = "egress_updated"
	eventEgressEnded   = "egress_ended"
)

type RecordingService interface {
	Start(ctx context.Context, callerId, sessionId uuid.UUID) (string, error)
	Stop(ctx context.Context, callerId, sessionId uuid.UUID, egressId string) error
	HandleWebhook(ctx context.Context, event dto.EgressEvent) error
	DownloadUrl(ctx context.Context, callerId, sessionId uuid.UUID) (string, error)
}

// presigner is the slice of the storage client this service needs.
type presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type recordingService struct {
	repo      repository.Repository
	relay     relay.Client
	publisher queue.Publisher
	storage   presigner
	bucket    string
}

func NewRecordingService(repo repository.Repository, relayClient relay.Client, publisher queue.Publisher, storage presigner, bucket string) RecordingService {
	return &recordingService{
		repo:      repo,
		relay:     relayClient,
		publisher: publisher,
		storage:   storage,
		bucket:    bucket,
	}
}

func (s *recordingService) Start(ctx context.Context, callerId, sessionId uuid.UUID) (string, error) {
	session, err := s.authorizeTeacher(ctx, callerId, sessionId)
	if err != nil {
		return "", err
	}
	if session.Status != constant.SessionStatusLive {
		return "", fmt.Errorf("%w: session is not live", ErrInvalidState)
	}

	objectPath := fmt.Sprintf("%s/%d.mp4", session.RoomName, time.Now().Unix())
	egressId, err := s.relay.StartRoomCompositeEgress(ctx, session.RoomName, objectPath)
	if err != nil {
		return "", err
	}

	if err := s.repo.AppendLog(ctx, session.ID, constant.LogRecordingStarted, map[string]interface{}{
		"egress_id":   egressId,
		"object_path": objectPath,
	}); err != nil {
		return "", err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("egress_id", egressId).
		Msg("recording started")

	return egressId, nil
}

func (s *recordingService) Stop(ctx context.Context, callerId, sessionId uuid.UUID, egressId string) error {
	session, err := s.authorizeTeacher(ctx, callerId, sessionId)
	if err != nil {
		return err
	}

	if err := s.relay.StopEgress(ctx, egressId); err != nil {
		return err
	}

	if err := s.repo.AppendLog(ctx, session.ID, constant.LogRecordingStopped, map[string]interface{}{
		"egress_id": egressId,
	}); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("egress_id", egressId).
		Msg("recording stopped")

	// recording_url stays unset here; only the egress_ended webhook
	// carries the final file location.
	return nil
}

// HandleWebhook ingests the relay's asynchronous egress callbacks. A room
// with no matching session and a repeat delivery of the same event both
// resolve without error so the relay never retries on our account.
func (s *recordingService) HandleWebhook(ctx context.Context, event dto.EgressEvent) error {
	switch event.Event {
	case eventEgressStarted, eventEgressUpdated:
		zerolog.Ctx(ctx).Debug().Str("event", event.Event).Msg("ignoring egress progress event")
		return nil
	case eventEgressEnded:
	default:
		return fmt.Errorf("%w: %q", ErrUnrecognizedEvent, event.Event)
	}

	if event.EgressInfo == nil || event.EgressInfo.RoomName == "" {
		return fmt.Errorf("%w: egress_ended without egress info", ErrUnrecognizedEvent)
	}

	session, err := s.repo.FindSessionByRoomName(ctx, event.EgressInfo.RoomName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zerolog.Ctx(ctx).Warn().
				Str("room_name", event.EgressInfo.RoomName).
				Msg("egress_ended for unknown room")
			return nil
		}
		return err
	}

	if len(event.EgressInfo.FileResults) == 0 {
		zerolog.Ctx(ctx).Warn().
			Str("room_name", event.EgressInfo.RoomName).
			Msg("egress_ended without file results")
		return nil
	}
	file := event.EgressInfo.FileResults[0]
	recordingUrl := file.DownloadUrl
	if recordingUrl == "" {
		recordingUrl = file.Filename
	}

	if err := s.repo.SetSessionRecordingUrl(ctx, session.ID, recordingUrl); err != nil {
		return err
	}
	if err := s.repo.AppendLog(ctx, session.ID, constant.LogRecordingCompleted, map[string]interface{}{
		"egress_id":     event.EgressInfo.EgressId,
		"recording_url": recordingUrl,
	}); err != nil {
		return err
	}

	s.enqueueTranscode(ctx, session, file)

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("recording_url", recordingUrl).
		Msg("recording completed")

	return nil
}

// enqueueTranscode hands the stored MP4 to the transcode worker. The
// recording itself is already ingested at this point, so failures here are
// logged and left to the pending job row for re-publication.
func (s *recordingService) enqueueTranscode(ctx context.Context, session *entities.ClassSession, file dto.FileResult) {
	job := &entities.Job{
		ID:         uuid.New(),
		EntityId:   session.ID,
		EntityType: "class_session",
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeTranscoder,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("session_id", session.ID.String()).
			Msg("failed to create transcode job")
		return
	}

	objectPath := s.objectPath(file)
	err := s.publisher.PublishTranscodeJob(ctx, dto.TranscodeJobMessage{
		JobId:      job.ID,
		ObjectPath: objectPath,
		FileName:   path.Base(objectPath),
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("job_id", job.ID.String()).
			Msg("failed to publish transcode job, pending row remains")
	}
}

func (s *recordingService) DownloadUrl(ctx context.Context, callerId, sessionId uuid.UUID) (string, error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return "", err
	}

	class, err := s.repo.FindClassById(ctx, session.ClassId)
	if err != nil {
		return "", err
	}
	if _, err := resolveParticipantRole(callerId, class); err != nil {
		return "", err
	}

	if session.RecordingUrl == nil || *session.RecordingUrl == "" {
		return "", fmt.Errorf("%w: session has no recording", ErrNotFound)
	}

	object := s.objectPath(dto.FileResult{DownloadUrl: *session.RecordingUrl})
	if object == "" {
		return "", fmt.Errorf("cannot derive object name from recording url %q", *session.RecordingUrl)
	}

	signed, err := s.storage.PresignedGetObject(ctx, s.bucket, object, downloadUrlTTL, nil)
	if err != nil {
		return "", err
	}
	return signed.String(), nil
}

// objectPath recovers the bucket-relative object key, preferring the
// relay-reported filepath over parsing the download URL.
func (s *recordingService) objectPath(file dto.FileResult) string {
	if file.Filename != "" {
		return strings.TrimPrefix(file.Filename, "/")
	}
	u, err := url.Parse(file.DownloadUrl)
	if err != nil {
		return ""
	}
	p := strings.TrimPrefix(u.Path, "/")
	return strings.TrimPrefix(p, s.bucket+"/")
}

func (s *recordingService) authorizeTeacher(ctx context.Context, callerId, sessionId uuid.UUID) (*entities.ClassSession, error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return nil, err
	}
	class, err := s.repo.FindClassById(ctx, session.ClassId)
	if err != nil {
		return nil, err
	}
	if class.TeacherId != callerId {
		return nil, fmt.Errorf("%w: only the assigned teacher can manage recordings", ErrForbidden)
	}
	return session, nil
}
