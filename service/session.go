package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"live-classroom/config"
	"live-classroom/constant"
	"live-classroom/dto"
	"live-classroom/entities"
	"live-classroom/pkg/relay"
	"live-classroom/repository"
)

// SessionService owns the per-class state machine: NONE -> LIVE -> ENDED,
// with ENDED terminal. A new occurrence of a class needs a new session row.
type SessionService interface {
	Create(ctx context.Context, callerId, classId uuid.UUID) (*dto.CreateSessionResponse, error)
	Join(ctx context.Context, callerId, sessionId uuid.UUID) (*dto.JoinSessionResponse, error)
	End(ctx context.Context, callerId, sessionId uuid.UUID) error
	LiveSessionsByClass(ctx context.Context, classId uuid.UUID) ([]dto.SessionSnapshot, error)
	SessionWithChats(ctx context.Context, sessionId uuid.UUID) (*dto.SessionSnapshot, []dto.ChatMessage, error)
}

type sessionService struct {
	repo   repository.Repository
	relay  relay.Client
	tokens *relay.TokenIssuer
	cfg    *config.Config
}

func NewSessionService(repo repository.Repository, relayClient relay.Client, tokens *relay.TokenIssuer, cfg *config.Config) SessionService {
	return &sessionService{
		repo:   repo,
		relay:  relayClient,
		tokens: tokens,
		cfg:    cfg,
	}
}

// resolveParticipantRole derives the caller's role from their relationship
// to the class. The role is fixed at first join and this is the only place
// that decides it.
func resolveParticipantRole(callerId uuid.UUID, class *entities.Class) (constant.ParticipantRole, error) {
	switch callerId {
	case class.TeacherId:
		return constant.RoleTeacher, nil
	case class.StudentId:
		return constant.RoleStudent, nil
	}
	return "", fmt.Errorf("%w: not the teacher or student of this class", ErrForbidden)
}

func (s *sessionService) Create(ctx context.Context, callerId, classId uuid.UUID) (*dto.CreateSessionResponse, error) {
	class, err := s.repo.FindClassById(ctx, classId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: class %s", ErrNotFound, classId)
		}
		return nil, err
	}
	if class.TeacherId != callerId {
		return nil, fmt.Errorf("%w: only the assigned teacher can start a session", ErrForbidden)
	}

	now := time.Now().UTC()
	roomName := fmt.Sprintf("class-%s-%d", classId, now.Unix())

	if err := s.relay.CreateRoom(ctx, roomName, constant.RoomCapacity); err != nil {
		return nil, err
	}

	session := &entities.ClassSession{
		ID:        uuid.New(),
		ClassId:   classId,
		Status:    constant.SessionStatusLive,
		RoomName:  roomName,
		StartedAt: now,
	}
	if err := s.repo.CreateLiveSession(ctx, session); err != nil {
		if errors.Is(err, repository.ErrLiveSessionExists) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return nil, err
	}

	if err := s.repo.MarkClassInProgress(ctx, classId, now); err != nil {
		return nil, err
	}

	// Session row before the participant row that references it: failing in
	// between leaves a session without participants, which a rejoin repairs.
	if err := s.repo.UpsertParticipant(ctx, &entities.SessionParticipant{
		ID:        uuid.New(),
		SessionId: session.ID,
		UserId:    callerId,
		Role:      constant.RoleTeacher,
		JoinedAt:  now,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.AppendLog(ctx, session.ID, constant.LogSessionCreated, map[string]interface{}{
		"class_id":  classId,
		"room_name": roomName,
	}); err != nil {
		return nil, err
	}

	token, err := s.tokens.ParticipantToken(callerId.String(), roomName, constant.RoleTeacher)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("class_id", classId.String()).
		Str("room_name", roomName).
		Msg("live session created")

	return &dto.CreateSessionResponse{
		SessionId:  session.ID,
		MediaToken: token,
		RelayUrl:   s.cfg.Relay.Url,
		RoomName:   roomName,
	}, nil
}

// Join is idempotent under reconnection: a second call for the same
// (session, user) clears left_at instead of inserting another row.
func (s *sessionService) Join(ctx context.Context, callerId, sessionId uuid.UUID) (*dto.JoinSessionResponse, error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return nil, err
	}
	if session.Status != constant.SessionStatusLive {
		return nil, fmt.Errorf("%w: session is not live", ErrInvalidState)
	}

	class, err := s.repo.FindClassById(ctx, session.ClassId)
	if err != nil {
		return nil, err
	}
	role, err := resolveParticipantRole(callerId, class)
	if err != nil {
		return nil, err
	}

	// The capacity check only applies to first joins; a rejoining
	// participant already holds one of the two seats.
	_, err = s.repo.FindParticipant(ctx, session.ID, callerId)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		count, err := s.repo.CountParticipants(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if count >= constant.RoomCapacity {
			return nil, fmt.Errorf("%w: room is at capacity", ErrInvalidState)
		}
	}

	now := time.Now().UTC()
	if err := s.repo.UpsertParticipant(ctx, &entities.SessionParticipant{
		ID:        uuid.New(),
		SessionId: session.ID,
		UserId:    callerId,
		Role:      role,
		JoinedAt:  now,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.AppendLog(ctx, session.ID, constant.LogParticipantJoined, map[string]interface{}{
		"user_id": callerId,
		"role":    role,
	}); err != nil {
		return nil, err
	}

	token, err := s.tokens.ParticipantToken(callerId.String(), session.RoomName, role)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("user_id", callerId.String()).
		Str("role", role.String()).
		Msg("participant joined")

	return &dto.JoinSessionResponse{
		MediaToken: token,
		RelayUrl:   s.cfg.Relay.Url,
		RoomName:   session.RoomName,
		Session:    snapshot(session),
	}, nil
}

// End finalizes presence in one pass: the relay never reports individual
// disconnects, so left_at for everyone still open is the session end.
func (s *sessionService) End(ctx context.Context, callerId, sessionId uuid.UUID) error {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return err
	}

	class, err := s.repo.FindClassById(ctx, session.ClassId)
	if err != nil {
		return err
	}
	if class.TeacherId != callerId {
		return fmt.Errorf("%w: only the assigned teacher can end a session", ErrForbidden)
	}

	if session.Status == constant.SessionStatusEnded {
		return fmt.Errorf("%w: session already ended", ErrInvalidState)
	}

	now := time.Now().UTC()
	if err := s.repo.MarkSessionEnded(ctx, session.ID, now); err != nil {
		return err
	}

	open, err := s.repo.ListOpenParticipants(ctx, session.ID)
	if err != nil {
		return err
	}
	for _, p := range open {
		duration := int(now.Sub(p.JoinedAt).Seconds())
		if duration < 0 {
			// joined_at and the end timestamp can come from different
			// clocks; never record a negative duration.
			duration = 0
		}
		if err := s.repo.CloseParticipant(ctx, p.ID, now, duration); err != nil {
			return err
		}
	}

	if err := s.repo.MarkClassCompleted(ctx, session.ClassId, now); err != nil {
		return err
	}

	if err := s.repo.AppendLog(ctx, session.ID, constant.LogSessionEnded, map[string]interface{}{
		"ended_at":     now,
		"participants": len(open),
	}); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Int("participants_closed", len(open)).
		Msg("live session ended")

	return nil
}

func (s *sessionService) LiveSessionsByClass(ctx context.Context, classId uuid.UUID) ([]dto.SessionSnapshot, error) {
	sessions, err := s.repo.FindLiveSessionsByClassId(ctx, classId)
	if err != nil {
		return nil, err
	}
	snapshots := make([]dto.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, snapshot(session))
	}
	return snapshots, nil
}

func (s *sessionService) SessionWithChats(ctx context.Context, sessionId uuid.UUID) (*dto.SessionSnapshot, []dto.ChatMessage, error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return nil, nil, err
	}

	chats, err := s.repo.ListChatsBySessionId(ctx, session.ID, s.cfg.Chat.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}

	messages := make([]dto.ChatMessage, 0, len(chats))
	for _, chat := range chats {
		messages = append(messages, dto.ChatMessage{
			ID:        chat.ID,
			SessionId: chat.SessionId,
			SenderId:  chat.SenderId,
			Message:   chat.Message,
			IsBlocked: chat.IsBlocked,
			CreatedAt: chat.CreatedAt,
		})
	}

	snap := snapshot(session)
	return &snap, messages, nil
}

func snapshot(session *entities.ClassSession) dto.SessionSnapshot {
	return dto.SessionSnapshot{
		ID:           session.ID,
		ClassId:      session.ClassId,
		Status:       session.Status,
		RoomName:     session.RoomName,
		StartedAt:    session.StartedAt,
		EndedAt:      session.EndedAt,
		RecordingUrl: session.RecordingUrl,
	}
}
