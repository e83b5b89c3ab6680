package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/api/handler"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/api/middleware"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/browser"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/cache"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(b *browser.Browser, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(b, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/harvest", handler.Harvest(b, cfg, cc))

	return r
}
