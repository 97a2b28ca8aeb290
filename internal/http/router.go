package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/mannyc2/watchify-app-sub000/internal/http/handlers"
	httpMW "github.com/mannyc2/watchify-app-sub000/internal/http/middleware"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	SourceHandler   *httpH.SourceHandler
	SyncHandler     *httpH.SyncHandler
	ChangesHandler  *httpH.ChangesHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.SourceHandler != nil {
			api.POST("/sources", cfg.SourceHandler.CreateSource)
			api.GET("/sources", cfg.SourceHandler.ListSources)
			api.DELETE("/sources/:id", cfg.SourceHandler.DeleteSource)
		}

		if cfg.SyncHandler != nil {
			api.POST("/sources/:id/sync", cfg.SyncHandler.SyncSource)
			api.POST("/sync", cfg.SyncHandler.SyncAll)
			api.GET("/sync/failures", cfg.SyncHandler.LastRunFailures)
		}

		if cfg.ChangesHandler != nil {
			api.GET("/sources/:id/changes", cfg.ChangesHandler.ListChanges)
			api.POST("/changes/read", cfg.ChangesHandler.MarkRead)
			api.GET("/variants/:id/history", cfg.ChangesHandler.VariantHistory)
		}

		if cfg.RealtimeHandler != nil {
			api.GET("/events/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
