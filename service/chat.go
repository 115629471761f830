package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"live-classroom/dto"
	"live-classroom/entities"
	"live-classroom/pkg/moderation"
	"live-classroom/repository"
)

// ChatService moderates and persists participant chat. The rate-limit
// window is keyed by sender identity alone, so a cooldown follows the
// sender across sessions.
type ChatService interface {
	Send(ctx context.Context, callerId, sessionId uuid.UUID, message string) (*dto.ChatMessage, error)
}

type chatService struct {
	repo   repository.Repository
	window time.Duration
}

func NewChatService(repo repository.Repository, window time.Duration) ChatService {
	if window <= 0 {
		window = time.Second
	}
	return &chatService{repo: repo, window: window}
}

func (s *chatService) Send(ctx context.Context, callerId, sessionId uuid.UUID, message string) (*dto.ChatMessage, error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionId)
		}
		return nil, err
	}

	if _, err := s.repo.FindParticipant(ctx, session.ID, callerId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: only session participants may chat", ErrForbidden)
		}
		return nil, err
	}

	// Rejected sends must leave no chat row behind, so the window check
	// comes before moderation and persistence.
	now := time.Now().UTC()
	ok, err := s.repo.AcquireChatSlot(ctx, callerId, now, s.window)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: one message per %s", ErrRateLimited, s.window)
	}

	result := moderation.Moderate(message)

	chat := &entities.SessionChat{
		ID:        uuid.New(),
		SessionId: session.ID,
		SenderId:  callerId,
		Message:   result.Sanitized,
		IsBlocked: result.Blocked,
		CreatedAt: now,
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	if result.Blocked {
		if err := s.repo.CreateModerationEvent(ctx, &entities.ModerationEvent{
			ID:              uuid.New(),
			SessionId:       session.ID,
			UserId:          callerId,
			OriginalMessage: strings.TrimSpace(message),
			Reason:          result.Reason,
			CreatedAt:       now,
		}); err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().
			Str("session_id", session.ID.String()).
			Str("sender_id", callerId.String()).
			Str("reason", string(result.Reason)).
			Msg("chat message blocked")
	}

	return &dto.ChatMessage{
		ID:        chat.ID,
		SessionId: chat.SessionId,
		SenderId:  chat.SenderId,
		Message:   chat.Message,
		IsBlocked: chat.IsBlocked,
		CreatedAt: chat.CreatedAt,
	}, nil
}
