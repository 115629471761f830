package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"live-classroom/config"
	"live-classroom/constant"
	"live-classroom/handler"
	"live-classroom/pkg/identity"
	"live-classroom/pkg/queue"
	"live-classroom/pkg/relay"
	"live-classroom/repository"
	"live-classroom/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	// The transcode pipeline is best-effort: a failed connection only
	// disables job publication, recordings still ingest.
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	if err := repo.Migrate(); err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to run migrations")
	}

	tokens := relay.NewTokenIssuer(cfg.Relay.ApiKey, cfg.Relay.ApiSecret)
	relayClient := relay.NewClient(cfg.Relay.Url, tokens, relay.S3Upload{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
	})
	publisher := queue.NewPublisher(conn, cfg.Queue)
	resolver := identity.NewHTTPResolver(cfg.Identity.Url, cfg.Identity.Timeout)

	sessionService := service.NewSessionService(repo, relayClient, tokens, cfg)
	chatService := service.NewChatService(repo, cfg.Chat.RateLimitWindow)
	recordingService := service.NewRecordingService(repo, relayClient, publisher, cfg.Storage, cfg.S3.Bucket)

	h := handler.New(sessionService, chatService, recordingService, cfg.Relay.WebhookAuthKey)

	r := gin.Default()
	r.Use(requestLogger(ctx))
	addHealth(r)
	addRoutes(r, h, resolver)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addRoutes(r *gin.Engine, h *handler.Handler, resolver identity.Resolver) {
	api := r.Group("/api/v1")

	// The webhook authenticates with its own shared secret, not a caller
	// identity.
	api.POST("/webhooks/recording", h.RecordingWebhook)

	authed := api.Group("", handler.Auth(resolver))
	authed.POST("/live-sessions", h.CreateSession)
	authed.GET("/live-sessions", h.GetSessions)
	authed.POST("/live-sessions/:id/join", h.JoinSession)
	authed.POST("/live-sessions/:id/end", h.EndSession)
	authed.POST("/live-sessions/:id/chat", h.SendMessage)
	authed.POST("/live-sessions/:id/recording/start", h.StartRecording)
	authed.POST("/live-sessions/:id/recording/stop", h.StopRecording)
	authed.GET("/live-sessions/:id/recording-download", h.RecordingDownload)
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// requestLogger carries the root logger into each request context so
// services can log via zerolog.Ctx.
func requestLogger(root context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(root)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
