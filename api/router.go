package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/super-dl/super-dl/api/handler"
	"github.com/super-dl/super-dl/api/middleware"
	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/notify"
	"github.com/super-dl/super-dl/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and sites endpoints stay outside auth so probes and discovery
// always work.
func NewRouter(p *pipeline.Pipeline, notifier *notify.Notifier, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(startTime))
	v1.GET("/sites", handler.Sites())

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/extract", handler.Extract(p))
	protected.POST("/download", handler.Download(p, notifier))

	return r
}
