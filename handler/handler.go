package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"live-classroom/constant"
	"live-classroom/dto"
	"live-classroom/service"
)

type Handler struct {
	Sessions       service.SessionService
	Chat           service.ChatService
	Recording      service.RecordingService
	WebhookAuthKey string
}

func New(sessions service.SessionService, chat service.ChatService, recording service.RecordingService, webhookAuthKey string) *Handler {
	return &Handler{
		Sessions:       sessions,
		Chat:           chat,
		Recording:      recording,
		WebhookAuthKey: webhookAuthKey,
	}
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	resp, err := h.Sessions.Create(c.Request.Context(), callerId(c), req.ClassId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) JoinSession(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	resp, err := h.Sessions.Join(c.Request.Context(), callerId(c), sessionId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) EndSession(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	if err := h.Sessions.End(c.Request.Context(), callerId(c), sessionId); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// GetSessions answers two read shapes: by class_id it lists live sessions
// for polling, by session_id it returns one session with its chat history.
func (h *Handler) GetSessions(c *gin.Context) {
	if raw := c.Query("class_id"); raw != "" {
		classId, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "class_id must be a uuid"})
			return
		}
		sessions, err := h.Sessions.LiveSessionsByClass(c.Request.Context(), classId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
		return
	}

	if raw := c.Query("session_id"); raw != "" {
		sessionId, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id must be a uuid"})
			return
		}
		session, chats, err := h.Sessions.SessionWithChats(c.Request.Context(), sessionId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session, "chats": chats})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "either class_id or session_id is required"})
}

func (h *Handler) SendMessage(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	chat, err := h.Chat.Send(c.Request.Context(), callerId(c), sessionId, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

func (h *Handler) StartRecording(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	egressId, err := h.Recording.Start(c.Request.Context(), callerId(c), sessionId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"egress_id": egressId, "status": "recording"})
}

func (h *Handler) StopRecording(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	var req dto.StopRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.Recording.Stop(c.Request.Context(), callerId(c), sessionId, req.EgressId); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) RecordingDownload(c *gin.Context) {
	sessionId, ok := pathId(c)
	if !ok {
		return
	}
	downloadUrl, err := h.Recording.DownloadUrl(c.Request.Context(), callerId(c), sessionId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"download_url": downloadUrl})
}

// RecordingWebhook is the only inbound call not initiated by a client. It
// acknowledges everything it can so the relay never retries because of an
// event that is simply not ours to act on.
func (h *Handler) RecordingWebhook(c *gin.Context) {
	if h.WebhookAuthKey != "" {
		if c.GetHeader("Authorization") != "Bearer "+h.WebhookAuthKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook credentials"})
			return
		}
	}

	var event dto.EgressEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	err := h.Recording.HandleWebhook(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, service.ErrUnrecognizedEvent) {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("webhook event rejected")
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func callerId(c *gin.Context) uuid.UUID {
	v, _ := c.Get(constant.CtxUserId)
	id, _ := v.(uuid.UUID)
	return id
}

func pathId(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id must be a uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func writeBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
