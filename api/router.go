package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/bannergrab/api/handler"
	"github.com/use-agent/bannergrab/api/middleware"
	"github.com/use-agent/bannergrab/cache"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth → RateLimit
//
// Health and the saved images under cfg.Output.PublicPrefix are outside auth.
func NewRouter(rn *handler.Runner, cfg *config.Config, cc *cache.Cache, n *webhook.Notifier, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if cfg.Output.PublicPrefix != "" {
		r.Static(cfg.Output.PublicPrefix, cfg.Output.Dir)
	}

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(cfg.Output.Dir, startTime))

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Banners
	protected.POST("/banners", handler.Banners(rn, cc))
	protected.GET("/download/:folder", handler.Download(cfg.Output.Dir))

	// Batch
	protected.POST("/banners/batch", handler.PostBatch(rn, cfg.Batch, n))
	protected.GET("/banners/batch/:id", handler.GetBatch())

	return r
}
