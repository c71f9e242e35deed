// Package httpapi wires the HTTP transport (Gin) to the application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, structured logging, panic recovery, metrics,
// compression, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The original site's paths and payload shapes, preserved exactly
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lkataba/community-backend/internal/chat"
	"github.com/lkataba/community-backend/internal/config"
	"github.com/lkataba/community-backend/internal/counter"
	"github.com/lkataba/community-backend/internal/http/handlers"
	"github.com/lkataba/community-backend/internal/http/middleware"
	"github.com/lkataba/community-backend/internal/services"
	"github.com/lkataba/community-backend/internal/store"
	"github.com/lkataba/community-backend/internal/utils"
)

// Admin endpoints share one tighter fixed budget: 20 requests per 15 minutes
// per identity.
const (
	adminWindow = 15 * time.Minute
	adminLimit  = 20
)

// Deps carries everything the routes need. All fields are required.
type Deps struct {
	Supervisor   *store.Supervisor
	Surveys      *services.SurveyService
	Posts        *services.PostService
	Interactions *services.InteractionService
	Stats        *services.StatsService
	Auth         *services.AuthService
	Counter      *counter.Cache
	Chat         *chat.Service
}

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Metrics
//  7. Global rate limiter (per session/IP)
//  8. Compression, CORS, security headers
func RegisterRoutes(r *gin.Engine, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	// Global body cap (1 MiB). The largest legitimate payload is a full
	// article submission, well under this.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySessionOrIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(corsMiddleware(cfg))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		EnableCSP:  true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	surveyH := handlers.NewSurveyHandler(deps.Surveys)
	counterH := handlers.NewCounterHandler(deps.Counter)
	postsH := handlers.NewPostsHandler(deps.Posts)
	interactH := handlers.NewInteractionsHandler(deps.Interactions)
	chatH := handlers.NewChatHandler(deps.Chat)
	adminH := handlers.NewAdminHandler(deps.Auth, deps.Stats)
	systemH := handlers.NewSystemHandler(deps.Supervisor, cfg.Env, utils.AtoiDefault(cfg.Port, 0))

	r.GET("/health", systemH.Health)
	r.GET("/ping", systemH.Ping)

	api := r.Group("/api")
	{
		api.GET("/mongodb/status", systemH.MongoStatus)

		api.POST("/submit-survey", surveyH.Submit)
		api.GET("/responses", surveyH.List)
		api.GET("/stats", surveyH.Stats)

		api.GET("/counter", counterH.Get)
		api.GET("/counter/analytics", counterH.Analytics)

		posts := api.Group("/posts")
		{
			posts.GET("", postsH.ListPublished)
			posts.POST("", postsH.CreateLegacy)
			posts.GET("/all", postsH.ListAll)
			posts.GET("/pending", postsH.ListPending)
			posts.GET("/search", postsH.Search)
			posts.POST("/submit", postsH.Submit)

			posts.GET("/:id", postsH.Get)
			posts.PATCH("/:id", postsH.Moderate)
			posts.DELETE("/:id", postsH.Delete)

			posts.GET("/:id/interactions", interactH.Get)
			posts.POST("/:id/interact", interactH.Interact)
			posts.POST("/:id/like", interactH.Like)
			posts.POST("/:id/dislike", interactH.Dislike)
			posts.GET("/:id/comments", interactH.ListComments)
			posts.POST("/:id/comments", interactH.AddComment)
			posts.GET("/:id/stats", interactH.Stats)
		}

		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("/check-nickname", chatH.CheckNickname)
			chatGroup.POST("/join", chatH.Join)
			chatGroup.POST("/leave", chatH.Leave)
			chatGroup.POST("/message", chatH.Message)
			chatGroup.GET("/messages", chatH.Messages)
			chatGroup.DELETE("/delete-message", chatH.DeleteMessage)
			chatGroup.POST("/ping", chatH.Ping)
		}

		adminRL := middleware.NewRateLimiter(
			float64(adminLimit)/adminWindow.Seconds(), adminLimit,
			middleware.KeyBySessionOrIP(),
		)
		admin := api.Group("/admin", adminRL.Handler())
		{
			admin.POST("/verify", adminH.Verify)
			admin.POST("/statistics", adminH.Statistics)
			admin.POST("/export", adminH.Export)
			admin.POST("/clear-submissions", adminH.ClearSubmissions)
		}
		api.POST("/auth/statistics", adminRL.Handler(), adminH.Login)
	}
}

// corsMiddleware builds the CORS posture: allow-all when no origins are
// configured, an allowlist otherwise. Credentials stay off either way; every
// caller is anonymous.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", middleware.HeaderSessionID,
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
	} else {
		base.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	return cors.New(base)
}

// limitBody caps the request body for all endpoints using http.MaxBytesReader.
// Oversized requests fail when the handler reads the body.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
