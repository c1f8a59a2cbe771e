package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/brandtrack/internal/api/handlers"
	"github.com/your-org/brandtrack/internal/api/ws"
	"github.com/your-org/brandtrack/internal/auth"
	"github.com/your-org/brandtrack/internal/notify"
	"github.com/your-org/brandtrack/internal/queue"
	"github.com/your-org/brandtrack/internal/storage"
)

type RouterConfig struct {
	Analyses *storage.AnalysisStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Registry *ws.Registry
	Notifier *notify.Service
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1. Bearer token identifies the caller; analysis endpoints also
	// work anonymously.
	v1 := r.Group("/v1")
	v1.Use(auth.Middleware())

	// Analyses
	analysisH := handlers.NewAnalysisHandler(cfg.Analyses, cfg.MinIO, cfg.Producer)
	v1.POST("/analyze/youtube", analysisH.AnalyzeYouTube)
	v1.POST("/analyze/upload", analysisH.AnalyzeUpload)
	v1.GET("/analyses", analysisH.List)
	v1.GET("/analyses/:id", analysisH.Get)
	v1.GET("/analyses/:id/thumbnail", analysisH.Thumbnail)
	v1.DELETE("/analyses/:id", analysisH.Delete)
	v1.GET("/statistics", analysisH.Statistics)

	// Notifications & real-time delivery require an identified caller.
	authed := v1.Group("")
	authed.Use(auth.RequireUser())

	authed.GET("/ws", cfg.Registry.HandleWS)

	notifH := handlers.NewNotificationHandler(cfg.Notifier)
	authed.GET("/notifications", notifH.List)
	authed.GET("/notifications/unread-count", notifH.UnreadCount)
	authed.POST("/notifications/:id/read", notifH.MarkRead)
	authed.POST("/notifications/read-all", notifH.MarkAllRead)
	authed.DELETE("/notifications/:id", notifH.Delete)
	authed.POST("/collaborations", notifH.CreateCollaboration)

	return r
}
