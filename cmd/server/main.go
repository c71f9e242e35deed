// Command server runs the community site backend: the anonymous survey
// collector, the moderated publishing board, the ephemeral chat room, and the
// admin console API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lkataba/community-backend/internal/chat"
	"github.com/lkataba/community-backend/internal/config"
	"github.com/lkataba/community-backend/internal/counter"
	httpapi "github.com/lkataba/community-backend/internal/http"
	"github.com/lkataba/community-backend/internal/observability"
	"github.com/lkataba/community-backend/internal/services"
	"github.com/lkataba/community-backend/internal/store"
	"github.com/lkataba/community-backend/internal/sysutil"
)

// version is stamped by the build; "dev" for local runs.
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	// Missing .env is fine; production injects real env vars.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	// Storage: supervisor plus the failover adapters. The initial connect
	// runs in the background; the JSON files serve until it lands.
	sup := store.NewSupervisor(cfg.Mongo)
	go func() {
		if err := sup.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("mongodb unavailable, file storage active")
		}
	}()

	surveys := store.NewSurveys(sup, store.NewMongoSurveys(sup), store.NewFileSurveys(cfg.DataDir))
	posts := store.NewPosts(sup, store.NewMongoPosts(sup), store.NewFilePosts(cfg.DataDir))
	cnt := counter.New(surveys)

	chatSvc := chat.NewService(store.NewChatFile(cfg.DataDir))
	chatSvc.Start(ctx)

	deps := httpapi.Deps{
		Supervisor:   sup,
		Surveys:      services.NewSurveyService(surveys, cnt),
		Posts:        services.NewPostService(posts, cfg.Admin.SubmitPassword),
		Interactions: services.NewInteractionService(store.NewInteractionsFile(cfg.DataDir), store.NewCommentsFile(cfg.DataDir)),
		Stats:        services.NewStatsService(surveys, cnt),
		Auth:         services.NewAuthService(cfg.Admin),
		Counter:      cnt,
		Chat:         chatSvc,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	grace, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(grace); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := sup.Close(grace); err != nil {
		log.Error().Err(err).Msg("mongodb disconnect failed")
	}
	if err := shutdownTracing(grace); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
	log.Info().Msg("server stopped")
}
